package profile

// MaxActivityItems es el tope de elementos recientes por registro.
const MaxActivityItems = 5

// ActivityItem es un post, tweet o story reciente.
type ActivityItem struct {
	ID         string           `json:"id"`
	Timestamp  string           `json:"timestamp,omitempty"`
	Text       string           `json:"text,omitempty"`
	Engagement map[string]int64 `json:"engagement,omitempty"`
	URL        string           `json:"url,omitempty"`
	MediaType  string           `json:"media_type,omitempty"`
	// Duration en segundos, solo para stories.
	Duration float64 `json:"duration,omitempty"`
}

// ItemList acumula elementos hasta el tope, en el orden de la fuente.
// El tope se aplica al recolectar: Add retorna false cuando la lista está llena
// y el llamador debe dejar de iterar.
type ItemList struct {
	limit int
	items []ActivityItem
}

// NewItemList crea una lista con tope limit (MaxActivityItems si limit <= 0).
func NewItemList(limit int) *ItemList {
	if limit <= 0 {
		limit = MaxActivityItems
	}
	return &ItemList{limit: limit, items: make([]ActivityItem, 0, limit)}
}

// Add agrega item si hay hueco. Retorna si caben más elementos.
func (l *ItemList) Add(item ActivityItem) bool {
	if len(l.items) >= l.limit {
		return false
	}
	l.items = append(l.items, item)
	return len(l.items) < l.limit
}

// Len retorna la cantidad de elementos.
func (l *ItemList) Len() int {
	return len(l.items)
}

// Items retorna los elementos recolectados.
func (l *ItemList) Items() []ActivityItem {
	return l.items
}
