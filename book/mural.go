package book

// Woman is one remembered entry of the final mural.
type Woman struct {
	ID     ID     `json:"id" yaml:"id,omitempty"`
	Name   string `json:"name" yaml:"name"`
	Date   string `json:"date" yaml:"date"`
	Memory string `json:"memory" yaml:"memory"`
}

// Mural is the terminal page. Book title and author live in the same record
// since the remote side stores them together.
type Mural struct {
	ID     ID
	Title  string
	Author string
	Women  []Woman
}

// WithWomen returns copy of the mural with women list replaced, title and
// author are kept.
func (m Mural) WithWomen(women []Woman) Mural {
	m.Women = append([]Woman(nil), women...)
	for i := range m.Women {
		if m.Women[i].ID.IsZero() {
			m.Women[i].ID = NewTempID()
		}
	}
	return m
}

// WithInfo returns copy of the mural with title and author replaced, women
// are kept.
func (m Mural) WithInfo(title, author string) Mural {
	m.Title, m.Author = title, author
	m.Women = append([]Woman(nil), m.Women...)
	return m
}
