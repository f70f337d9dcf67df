// Package reflector projects registry state into what the interface shows:
// tab strip, page list, zoom label and which actions are enabled.
package reflector

import (
	"fmt"
	"math"

	"github.com/pluqqy/pdfdeck/pkg/session"
)

// Tab is one entry of the tab strip
type Tab struct {
	ID       string
	Label    string
	FileID   string
	IsActive bool
}

// Page is one entry of the page list
type Page struct {
	Number    int
	IsCurrent bool
}

// Buttons says which actions are available
type Buttons struct {
	MoveUp   bool
	MoveDown bool
	Delete   bool
	Undo     bool
	Save     bool
	SaveAs   bool
	AddPages bool
	Merge    bool
	ZoomIn   bool
	ZoomOut  bool
}

// View is the derived interface state
type View struct {
	Tabs        []Tab
	Pages       []Page
	ZoomLabel   string
	CurrentPage int
	PageCount   int
	Filename    string
	FileID      string
	HasActive   bool
	Buttons     Buttons
}

// ZoomLabel formats a scale as a rounded percentage
func ZoomLabel(scale float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(scale*100)))
}

// Project derives the view from a registry snapshot. canUndo is the
// service's undo flag for the active document.
func Project(snap session.Snapshot, canUndo bool) View {
	view := View{
		Tabs: make([]Tab, 0, len(snap.Sessions)),
		Buttons: Buttons{
			Merge: true,
		},
	}
	for _, s := range snap.Sessions {
		view.Tabs = append(view.Tabs, Tab{
			ID:       s.TabID,
			Label:    s.Filename,
			FileID:   s.FileID,
			IsActive: s.TabID == snap.ActiveID,
		})
	}

	active, ok := snap.Active()
	if !ok {
		return view
	}

	view.HasActive = true
	view.CurrentPage = active.CurrentPage
	view.PageCount = active.PageCount
	view.Filename = active.Filename
	view.FileID = active.FileID
	view.ZoomLabel = ZoomLabel(active.Scale)

	view.Pages = make([]Page, active.PageCount)
	for i := range view.Pages {
		view.Pages[i] = Page{Number: i + 1, IsCurrent: i+1 == active.CurrentPage}
	}

	view.Buttons.MoveUp = active.CurrentPage > 1
	view.Buttons.MoveDown = active.CurrentPage < active.PageCount
	view.Buttons.Delete = active.PageCount > 1
	view.Buttons.Undo = canUndo
	view.Buttons.Save = true
	view.Buttons.SaveAs = true
	view.Buttons.AddPages = true
	view.Buttons.ZoomIn = active.Scale < session.MaxScale
	view.Buttons.ZoomOut = active.Scale > session.MinScale
	return view
}
