package viewer

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Back     key.Binding
	Mural    key.Binding
	Open     key.Binding
	Close    key.Binding
	Follow   key.Binding
	Play     key.Binding
	Restart  key.Binding
	Rewind   key.Binding
	Forward  key.Binding
	Mute     key.Binding
	VolDown  key.Binding
	VolUp    key.Binding
	Smaller  key.Binding
	Larger   key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next:     key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→", "next page")),
		Prev:     key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←", "previous page")),
		Back:     key.NewBinding(key.WithKeys("b", "backspace"), key.WithHelp("b", "back")),
		Mural:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mural")),
		Open:     key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open book")),
		Close:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "close book")),
		Follow:   key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "follow note")),
		Play:     key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		Restart:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "restart song")),
		Rewind:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "-5s")),
		Forward:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "+5s")),
		Mute:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "mute")),
		VolDown:  key.NewBinding(key.WithKeys(","), key.WithHelp(",", "volume -")),
		VolUp:    key.NewBinding(key.WithKeys("."), key.WithHelp(".", "volume +")),
		Smaller:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "smaller text")),
		Larger:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "larger text")),
		ScrollUp: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑", "scroll up")),
		ScrollDn: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓", "scroll down")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Back, k.Follow, k.Play, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Back, k.Mural, k.Follow},
		{k.Open, k.Close, k.ScrollUp, k.ScrollDn},
		{k.Play, k.Restart, k.Rewind, k.Forward},
		{k.Mute, k.VolDown, k.VolUp, k.Smaller, k.Larger},
		{k.Help, k.Quit},
	}
}
