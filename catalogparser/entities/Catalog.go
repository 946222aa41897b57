package entities

// Catalog is an immutable, ordered set of items.
// Insertion order is preserved: it is the last tie-breaker when ranking.
type Catalog struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`

	byID map[string]int
}

// NewCatalog builds a catalog and its ID index. Later duplicates of an ID are dropped.
func NewCatalog(name string, items []Item) *Catalog {
	c := &Catalog{
		Name:  name,
		Items: make([]Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}

	for _, item := range items {
		if _, exists := c.byID[item.ID]; exists {
			continue
		}
		if item.Source == "" {
			item.Source = SourceCatalog
		}
		c.byID[item.ID] = len(c.Items)
		c.Items = append(c.Items, item)
	}

	return c
}

// Get returns the item with the given id
func (c *Catalog) Get(id string) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	pos, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.Items[pos], true
}

// Len returns the number of items
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}
