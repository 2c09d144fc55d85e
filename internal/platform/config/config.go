package config

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	apperrors "social-rec/internal/platform/errors"
	"social-rec/internal/platform/logx"
)

const (
	// DefaultStealthProxy es el proxy SOCKS local (Tor) usado en modo stealth.
	DefaultStealthProxy = "socks5h://127.0.0.1:9050"
	// DefaultTimeoutS es el timeout por petición en segundos.
	DefaultTimeoutS = 10
	// DefaultStealthRate es el tope de peticiones por segundo en modo stealth
	// cuando no se pide otro.
	DefaultStealthRate = 1.0
	// DefaultBurst es la ráfaga del token bucket.
	DefaultBurst = 1
)

type Config struct {
	Username    string
	Output      string
	Verbosity   int
	Stealth     bool
	Platforms   []string
	TimeoutS    int
	// Rate es el tope de peticiones por segundo del gateway. 0 = sin límite.
	Rate        float64
	Burst       int
	Proxy       string
	ProxyCACert string
	Seed        uint64
	NoColor     bool
	ConfigPath  string
}

// Timeout retorna el timeout por petición.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutS) * time.Second
}

type fileConfig struct {
	Username    *string     `json:"username" yaml:"username"`
	Output      *string     `json:"output" yaml:"output"`
	Verbosity   *int        `json:"verbosity" yaml:"verbosity"`
	Stealth     *bool       `json:"stealth" yaml:"stealth"`
	Platforms   *stringList `json:"platforms" yaml:"platforms"`
	TimeoutS    *int        `json:"timeout" yaml:"timeout"`
	Rate        *float64    `json:"rate" yaml:"rate"`
	Burst       *int        `json:"burst" yaml:"burst"`
	Proxy       *string     `json:"proxy" yaml:"proxy"`
	ProxyCACert *string     `json:"proxy_ca" yaml:"proxy_ca"`
	Seed        *uint64     `json:"seed" yaml:"seed"`
	NoColor     *bool       `json:"no_color" yaml:"no_color"`
}

type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var aux []string
		if err := json.Unmarshal(trimmed, &aux); err != nil {
			return err
		}
		*s = cleanStringSlice(aux)
		return nil
	case '"':
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*s = cleanStringSlice(strings.Split(single, ","))
		return nil
	default:
		return errors.New("platforms debe ser un string o una lista")
	}
}

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		aux := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			aux = append(aux, node.Value)
		}
		*s = cleanStringSlice(aux)
		return nil
	case yaml.ScalarNode:
		*s = cleanStringSlice(strings.Split(value.Value, ","))
		return nil
	case yaml.MappingNode, yaml.DocumentNode:
		return errors.New("platforms debe ser un string o una lista")
	default:
		*s = nil
		return nil
	}
}

// Flags guarda los valores crudos ligados a un FlagSet hasta que Resolve los combina
// con el archivo de configuración.
type Flags struct {
	fs        *pflag.FlagSet
	config    string
	username  string
	output    string
	verbosity int
	stealth   bool
	platforms string
	timeout   int
	rate      float64
	burst     int
	proxy     string
	proxyCA   string
	seed      uint64
	noColor   bool
}

// Bind registra los flags de la herramienta en fs.
func Bind(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.config, "config", "", "Ruta a un archivo de configuración (YAML, JSON o TOML)")
	fs.StringVarP(&f.username, "username", "u", "", "Handle a investigar (requerido)")
	fs.StringVarP(&f.output, "output", "o", "", "Archivo JSON donde guardar el informe")
	fs.CountVarP(&f.verbosity, "verbose", "v", "Salida de diagnóstico (-v info, -vv debug, -vvv trace)")
	fs.BoolVarP(&f.stealth, "stealth", "s", false, "Modo sigiloso: ejecución escalonada, retardos aleatorios y proxy")
	fs.StringVarP(&f.platforms, "platforms", "p", "all", "Fuentes a consultar, CSV o \"all\"")
	fs.IntVar(&f.timeout, "timeout", DefaultTimeoutS, "Timeout por petición (segundos)")
	fs.Float64Var(&f.rate, "rate", 0, "Tope de peticiones por segundo (0 = sin límite; en stealth por defecto 1)")
	fs.IntVar(&f.burst, "burst", DefaultBurst, "Ráfaga máxima de peticiones del limitador")
	fs.StringVar(&f.proxy, "proxy", DefaultStealthProxy, "Proxy usado en modo stealth (socks5, socks5h, http, https)")
	fs.StringVar(&f.proxyCA, "proxy-ca", "", "Ruta a un certificado CA adicional para proxies con inspección TLS")
	fs.Uint64Var(&f.seed, "seed", 0, "Semilla para User-Agents y retardos (0 = aleatoria)")
	fs.BoolVar(&f.noColor, "no-color", false, "Desactivar colores en la salida")
	return f
}

// Resolve construye la configuración final. Un flag explícito siempre gana sobre
// el valor del archivo.
func (f *Flags) Resolve() (*Config, error) {
	setFlags := map[string]bool{}
	f.fs.Visit(func(fl *pflag.Flag) {
		setFlags[fl.Name] = true
	})

	cfg := &Config{
		Username:    strings.TrimSpace(f.username),
		Output:      strings.TrimSpace(f.output),
		Verbosity:   f.verbosity,
		Stealth:     f.stealth,
		Platforms:   cleanStringSlice(strings.Split(f.platforms, ",")),
		TimeoutS:    f.timeout,
		Rate:        f.rate,
		Burst:       f.burst,
		Proxy:       strings.TrimSpace(f.proxy),
		ProxyCACert: strings.TrimSpace(f.proxyCA),
		Seed:        f.seed,
		NoColor:     f.noColor,
		ConfigPath:  strings.TrimSpace(f.config),
	}

	if cfg.ConfigPath != "" {
		fileCfg, err := loadConfigFile(cfg.ConfigPath)
		if err != nil {
			return nil, err
		}
		overlay(cfg, fileCfg, setFlags)
		if fileCfg.Rate != nil {
			setFlags["rate"] = true
		}
	}
	if cfg.Stealth && !setFlags["rate"] {
		cfg.Rate = DefaultStealthRate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlay(cfg *Config, fc *fileConfig, setFlags map[string]bool) {
	if fc.Username != nil && !setFlags["username"] {
		cfg.Username = strings.TrimSpace(*fc.Username)
	}
	if fc.Output != nil && !setFlags["output"] {
		cfg.Output = strings.TrimSpace(*fc.Output)
	}
	if fc.Verbosity != nil && !setFlags["verbose"] {
		cfg.Verbosity = *fc.Verbosity
	}
	if fc.Stealth != nil && !setFlags["stealth"] {
		cfg.Stealth = *fc.Stealth
	}
	if fc.Platforms != nil && !setFlags["platforms"] {
		cfg.Platforms = cleanStringSlice([]string(*fc.Platforms))
	}
	if fc.TimeoutS != nil && !setFlags["timeout"] {
		cfg.TimeoutS = *fc.TimeoutS
	}
	if fc.Rate != nil && !setFlags["rate"] {
		cfg.Rate = *fc.Rate
	}
	if fc.Burst != nil && !setFlags["burst"] {
		cfg.Burst = *fc.Burst
	}
	if fc.Proxy != nil && !setFlags["proxy"] {
		cfg.Proxy = strings.TrimSpace(*fc.Proxy)
	}
	if fc.ProxyCACert != nil && !setFlags["proxy-ca"] {
		cfg.ProxyCACert = strings.TrimSpace(*fc.ProxyCACert)
	}
	if fc.Seed != nil && !setFlags["seed"] {
		cfg.Seed = *fc.Seed
	}
	if fc.NoColor != nil && !setFlags["no-color"] {
		cfg.NoColor = *fc.NoColor
	}
}

// Validate comprueba los campos que deben ser válidos antes de cualquier petición.
func (c *Config) Validate() error {
	if c.Username == "" {
		return apperrors.NewConfigurationError("username", "", "el handle es obligatorio", "usa -u <handle>")
	}
	if strings.ContainsAny(c.Username, "/?#@ ") {
		return apperrors.NewConfigurationError("username", c.Username, "el handle contiene caracteres no válidos", "pasa el handle sin @ ni URL")
	}
	if c.TimeoutS <= 0 {
		return apperrors.NewConfigurationError("timeout", fmt.Sprint(c.TimeoutS), "debe ser mayor que cero", "")
	}
	if c.Rate < 0 {
		return apperrors.NewConfigurationError("rate", fmt.Sprint(c.Rate), "no puede ser negativo", "usa 0 para no limitar")
	}
	if c.Burst < 1 {
		return apperrors.NewConfigurationError("burst", fmt.Sprint(c.Burst), "debe ser al menos 1", "")
	}
	if len(c.Platforms) == 0 {
		return apperrors.NewConfigurationError("platforms", "", "lista vacía", "usa -p all o una lista CSV")
	}
	if c.Stealth {
		if err := ValidateProxy(c.Proxy); err != nil {
			return err
		}
	}
	return nil
}

func loadConfigFile(path string) (*fileConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewConfigurationError("config", path, "el archivo no existe", "")
		}
		return nil, apperrors.NewConfigurationError("config", path, err.Error(), "")
	}
	if info.IsDir() {
		return nil, apperrors.NewConfigurationError("config", path, "la ruta apunta a un directorio", "")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("config", path, err.Error(), "")
	}

	var cfg fileConfig
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	case ".json":
		err = json.Unmarshal(raw, &cfg)
	case ".toml":
		err = unmarshalTOML(raw, &cfg)
	default:
		if err = yaml.Unmarshal(raw, &cfg); err != nil {
			err = json.Unmarshal(raw, &cfg)
		}
	}
	if err != nil {
		return nil, apperrors.NewConfigurationError("config", path, "formato inválido: "+err.Error(), "")
	}
	return &cfg, nil
}

// unmarshalTOML decodifica a un mapa y reutiliza las reglas de JSON (platforms
// como CSV o lista).
func unmarshalTOML(raw []byte, cfg *fileConfig) error {
	var generic map[string]any
	if err := toml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	data, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func cleanStringSlice(values []string) []string {
	list := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			list = append(list, v)
		}
	}
	return list
}

// ValidateProxy comprueba el formato del proxy. El proxy debe incluir esquema y
// host (ej: socks5h://127.0.0.1:9050). Si no responde solo se emite una advertencia.
func ValidateProxy(proxy string) error {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" {
		return apperrors.NewConfigurationError("proxy", "", "el modo stealth requiere un proxy", "usa --proxy socks5h://127.0.0.1:9050")
	}

	parsed, err := url.Parse(proxy)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return apperrors.NewConfigurationError("proxy", proxy, "debe incluir esquema y host", "ej: socks5h://127.0.0.1:9050")
	}

	switch parsed.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return apperrors.NewConfigurationError("proxy", proxy, fmt.Sprintf("esquema %q no soportado", parsed.Scheme), "usa socks5, socks5h, http o https")
	}

	if err := validateProxyConnectivity(parsed); err != nil {
		logx.Warnf("no se pudo verificar conectividad del proxy %s: %v", proxy, err)
	}
	return nil
}

// validateProxyConnectivity intenta una conexión TCP al proxy. El error no es fatal.
func validateProxyConnectivity(proxyURL *url.URL) error {
	timeout := 3 * time.Second

	host := proxyURL.Host
	if proxyURL.Port() == "" {
		switch proxyURL.Scheme {
		case "https":
			host = net.JoinHostPort(proxyURL.Hostname(), "443")
		case "http":
			host = net.JoinHostPort(proxyURL.Hostname(), "80")
		default:
			host = net.JoinHostPort(proxyURL.Hostname(), "1080")
		}
	}

	conn, err := net.DialTimeout("tcp", host, timeout)
	if err != nil {
		return fmt.Errorf("no se pudo conectar al proxy en %s: %w", host, err)
	}
	conn.Close()
	return nil
}

var (
	customRootCAs   *x509.CertPool
	customRootCAsMu sync.RWMutex
)

// ConfigureRootCAs carga un bundle de CAs adicional y lo expone vía CustomRootCAs
// para que el gateway HTTP lo use. Una ruta vacía limpia el pool.
func ConfigureRootCAs(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		customRootCAsMu.Lock()
		customRootCAs = nil
		customRootCAsMu.Unlock()
		return nil
	}

	pool, err := loadRootCAs(path)
	if err != nil {
		return err
	}

	customRootCAsMu.Lock()
	customRootCAs = pool
	customRootCAsMu.Unlock()
	return nil
}

// CustomRootCAs retorna las CAs configuradas con ConfigureRootCAs, si hay.
// El pool es de solo lectura.
func CustomRootCAs() *x509.CertPool {
	customRootCAsMu.RLock()
	defer customRootCAsMu.RUnlock()
	return customRootCAs
}

// TLSConfig retorna la configuración TLS con las CAs adicionales, o nil si no hay.
func TLSConfig() *tls.Config {
	pool := CustomRootCAs()
	if pool == nil {
		return nil
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
}

func loadRootCAs(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("proxy-ca", path, "no se pudo leer el certificado: "+err.Error(), "")
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if ok := pool.AppendCertsFromPEM(data); !ok {
		return nil, apperrors.NewConfigurationError("proxy-ca", path, "no se pudieron parsear certificados", "usa un archivo PEM")
	}
	return pool, nil
}
