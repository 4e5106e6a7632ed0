package viewer

import "github.com/gdamore/tcell/v2"

// Action is what the run loop must do after a key.
type Action uint8

const (
	ActionNone Action = iota
	ActionRedraw
	ActionRefresh
	ActionQuit
)

// HandleKey applies a key press to the view.
func (v *View) HandleKey(key tcell.Key, r rune) Action {
	if v.search.editing {
		return v.handleSearchKey(key, r)
	}

	switch key {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		return ActionQuit
	case tcell.KeyUp:
		v.Scroll(-1)
		return ActionRedraw
	case tcell.KeyDown:
		v.Scroll(1)
		return ActionRedraw
	case tcell.KeyPgUp:
		v.PageUp()
		return ActionRedraw
	case tcell.KeyPgDn:
		v.PageDown()
		return ActionRedraw
	case tcell.KeyHome:
		v.Home()
		return ActionRedraw
	case tcell.KeyEnd:
		v.End()
		return ActionRedraw
	case tcell.KeyRune:
	default:
		return ActionNone
	}

	switch r {
	case 'q':
		return ActionQuit
	case 'j':
		v.Scroll(1)
	case 'k':
		v.Scroll(-1)
	case ' ':
		v.PageDown()
	case 'b':
		v.PageUp()
	case 'g':
		v.Home()
	case 'G':
		v.End()
	case '/':
		v.StartSearch()
	case 'n':
		if !v.NextMatch() {
			return ActionNone
		}
	case 'N':
		if !v.PrevMatch() {
			return ActionNone
		}
	case 'l':
		v.ToggleLineNumbers()
	case 'm':
		v.ToggleMarkers()
	case 'r':
		v.SetStatus("refreshing", false)
		return ActionRefresh
	default:
		return ActionNone
	}
	return ActionRedraw
}

// handleSearchKey edits the search prompt. Enter runs the search and
// Escape closes the prompt without changing the previous search.
func (v *View) handleSearchKey(key tcell.Key, r rune) Action {
	switch key {
	case tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyEscape:
		v.search.editing = false
	case tcell.KeyEnter:
		v.Find(v.search.input)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if v.search.input == "" {
			v.search.editing = false
			break
		}
		runes := []rune(v.search.input)
		v.search.input = string(runes[:len(runes)-1])
	case tcell.KeyRune:
		v.search.input += string(r)
	default:
		return ActionNone
	}
	return ActionRedraw
}
