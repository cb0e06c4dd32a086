package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"CollabBoard/internal/collab"
	"CollabBoard/internal/engine"
	"CollabBoard/internal/export"
	"CollabBoard/internal/state"
)

const (
	peerIdle      = 30 * time.Second
	pruneInterval = 5 * time.Second
)

// Options wires the window to the rest of the program. Only Engine is
// required; without a Bridge the board is local only.
type Options struct {
	Title     string
	DocName   string
	ShareLink string
	Engine    *engine.Engine
	Bridge    *collab.Bridge
	Autosaver *collab.Autosaver
	Diagrams  *collab.DiagramService
	Export    export.Options
}

// App is the main window.
type App struct {
	opts    Options
	window  fyne.Window
	board   *BoardWidget
	toolbar *Toolbar

	editor  *widget.Entry
	editBar *fyne.Container
	editing string

	mu      sync.Mutex
	docName string

	stop chan struct{}
}

func NewApp(a fyne.App, opts Options) *App {
	if opts.Title == "" {
		opts.Title = "CollabBoard"
	}
	if opts.DocName == "" {
		opts.DocName = "Untitled"
	}
	w := a.NewWindow(opts.Title)
	w.Resize(fyne.NewSize(1024, 768))

	ui := &App{opts: opts, window: w, docName: opts.DocName, stop: make(chan struct{})}

	// Create the interactive board widget
	ui.board = NewBoardWidget(opts.Engine)
	ui.board.OnOpenDiagram = ui.editDiagram

	// Create the toolbar and pass it a reference to the board
	ui.toolbar = NewToolbar(ui.board, ToolbarActions{
		Export:  ui.showExport,
		Save:    ui.showSave,
		Open:    ui.showOpen,
		Diagram: func() { ui.showDiagram("") },
		Rename:  ui.showRename,
	})

	ui.editor = widget.NewMultiLineEntry()
	ui.editor.SetMinRowsVisible(2)
	ui.editor.OnChanged = func(s string) {
		if ui.editing != "" {
			opts.Engine.EditText(s)
		}
	}
	ui.editBar = container.NewBorder(nil, nil, widget.NewLabel("Text:"),
		container.NewHBox(
			widget.NewButton("Done", opts.Engine.CommitText),
			widget.NewButton("Cancel", opts.Engine.CancelEdit),
		), ui.editor)
	ui.editBar.Hide()

	status := ui.board.statusBar
	if opts.ShareLink != "" {
		status.SetText("Share: " + opts.ShareLink)
	}

	// Set up the main layout
	content := container.NewBorder(ui.toolbar.Content(), container.NewVBox(ui.editBar, status), nil, nil, ui.board)
	w.SetContent(content)
	ui.shortcuts()
	ui.wire()
	w.SetOnClosed(ui.close)
	return ui
}

// RunApp shows the window and blocks until it is closed. ready, when set,
// runs once the window exists.
func RunApp(opts Options, ready func(*App)) {
	ui := NewApp(app.NewWithID("io.collabboard"), opts)
	if ready != nil {
		ready(ui)
	}
	ui.window.ShowAndRun()
}

func (a *App) Window() fyne.Window { return a.window }

func (a *App) Board() *BoardWidget { return a.board }

func (a *App) Toolbar() *Toolbar { return a.toolbar }

func (a *App) Editor() *widget.Entry { return a.editor }

func (a *App) EditorVisible() bool { return a.editBar.Visible() }

func (a *App) DocName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.docName
}

// Rename renames the document and saves it under the new name. Blank
// names are ignored.
func (a *App) Rename(name string) {
	name = collab.DocumentName(name)
	if name == "" {
		return
	}
	if as := a.opts.Autosaver; as != nil {
		as.Rename(name)
		defer as.Changed(a.opts.Engine.Elements())
	}
	a.mu.Lock()
	a.docName = name
	a.mu.Unlock()
	a.board.SetStatus("Renamed to " + name)
}

func (a *App) showRename() {
	entry := widget.NewEntry()
	entry.SetText(a.DocName())
	dialog.ShowForm("Rename board", "Rename", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Name", entry)},
		func(ok bool) {
			if ok {
				a.Rename(entry.Text)
			}
		}, a.window)
}

func (a *App) wire() {
	e := a.opts.Engine
	e.OnRedraw = a.redraw
	e.OnLocalChange = a.localChange
	if br := a.opts.Bridge; br != nil {
		e.OnCursor = br.LocalCursor
		br.OnPeers = func(peers []collab.Cursor) {
			fyne.Do(func() { a.board.SetPeers(peers) })
		}
		br.OnRemote = a.remoteChange
		go a.prunePeers(br)
	}
	if as := a.opts.Autosaver; as != nil {
		as.OnStatus = func(s collab.SaveStatus) {
			a.board.SetStatus(fmt.Sprintf("%s: %s", a.DocName(), s))
		}
	}
}

func (a *App) localChange(els state.Elements) {
	if a.opts.Bridge != nil {
		a.opts.Bridge.LocalChange(els)
	}
	if a.opts.Autosaver != nil {
		a.opts.Autosaver.Changed(els)
	}
}

// remoteChange saves boards received from peers. They are not published
// again.
func (a *App) remoteChange(els state.Elements) {
	if a.opts.Autosaver != nil {
		a.opts.Autosaver.Changed(els)
	}
}

func (a *App) prunePeers(br *collab.Bridge) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-t.C:
			br.Prune(peerIdle)
			peers := br.Peers()
			fyne.Do(func() { a.board.SetPeers(peers) })
		}
	}
}

func (a *App) close() {
	select {
	case <-a.stop:
		return
	default:
		close(a.stop)
	}
	a.opts.Engine.CommitText()
	if a.opts.Autosaver != nil {
		a.opts.Autosaver.Flush()
	}
}

func (a *App) redraw() {
	fyne.Do(func() {
		a.board.Refresh()
		a.toolbar.Sync()
		a.syncEditor()
	})
}

// syncEditor shows the text bar while the engine has a label editor open.
func (a *App) syncEditor() {
	edit, ok := a.opts.Engine.Editing()
	if !ok {
		if a.editing != "" {
			a.editing = ""
			a.editBar.Hide()
		}
		return
	}
	if a.editing == edit.ID {
		return
	}
	a.editing = ""
	a.editor.SetText(edit.Text)
	a.editing = edit.ID
	a.editBar.Show()
	a.window.Canvas().Focus(a.editor)
}

func (a *App) shortcuts() {
	c := a.window.Canvas()
	for _, s := range []*desktop.CustomShortcut{
		{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault},
		{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift},
	} {
		c.AddShortcut(s, func(sc fyne.Shortcut) {
			if _, editing := a.opts.Engine.Editing(); editing {
				return
			}
			a.board.Shortcut(sc.(*desktop.CustomShortcut))
		})
	}
}

// ExportTo writes the selection, or the whole board when nothing is
// selected, in the format named by ext.
func (a *App) ExportTo(w io.Writer, ext string) error {
	e := a.opts.Engine
	ex, err := export.New(ext)
	if err != nil {
		return err
	}
	opts := a.opts.Export
	opts.Theme = e.Theme()
	opts.Measurer = e.Measurer()
	return ex.Export(context.Background(), w, export.Subset(e.Elements(), e.Selection()), opts)
}

func (a *App) showExport() {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		if w == nil {
			return
		}
		defer func() {
			if err := w.Close(); err != nil {
				log.Printf("Error closing writer: %v", err)
			}
		}()
		if err := a.ExportTo(w, w.URI().Extension()); err != nil {
			log.Printf("[EXPORT] %s: %v", w.URI().Name(), err)
			dialog.ShowError(err, a.window)
			return
		}
		a.board.SetStatus("Exported " + w.URI().Name())
	}, a.window)
	d.SetFileName(a.DocName() + ".svg")
	d.SetFilter(storage.NewExtensionFileFilter([]string{".svg", ".pdf", ".png"}))
	d.Show()
}

// SaveTo writes the board as a JSON document.
func (a *App) SaveTo(w io.Writer) error {
	doc := collab.Document{
		Elements: a.opts.Engine.Elements(),
		Metadata: collab.Metadata{Name: a.DocName(), UpdatedAt: time.Now().UnixMilli()},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// LoadFrom replaces the board with a saved document and shares it. Bad
// records are skipped.
func (a *App) LoadFrom(r io.Reader) (int, error) {
	var doc struct {
		Elements []collab.Record `json:"elements"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return 0, fmt.Errorf("invalid board file: %w", err)
	}
	els, err := collab.DecodeElements(doc.Elements)
	if err != nil {
		log.Printf("LoadFromFile: skipped records: %v", err)
	}
	a.opts.Engine.Load(els)
	a.localChange(els)
	return len(els), nil
}

func (a *App) showSave() {
	d := dialog.NewFileSave(func(w fyne.URIWriteCloser, err error) {
		if err != nil || w == nil {
			return
		}
		defer w.Close()
		if err := a.SaveTo(w); err != nil {
			log.Printf("SaveToFile: %v", err)
			a.board.SetStatus("Error saving file")
			return
		}
		a.board.SetStatus(fmt.Sprintf("Saved %d elements", len(a.opts.Engine.Elements())))
	}, a.window)
	d.SetFileName(a.DocName() + ".json")
	d.Show()
}

func (a *App) showOpen() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil || r == nil {
			return
		}
		defer r.Close()
		n, err := a.LoadFrom(r)
		if err != nil {
			a.board.SetStatus("Error parsing file - invalid format")
			return
		}
		a.board.SetStatus(fmt.Sprintf("Loaded %d elements", n))
	}, a.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	d.Show()
}

// showDiagram asks for notes and generates a new diagram from them. The
// form is shown again with the same notes when generation fails.
func (a *App) showDiagram(notes string) {
	svc := a.opts.Diagrams
	if svc == nil {
		dialog.ShowInformation("Diagrams", "No diagram generator is configured.", a.window)
		return
	}
	entry := widget.NewMultiLineEntry()
	entry.SetText(notes)
	entry.SetPlaceHolder("Describe the diagram")
	entry.SetMinRowsVisible(6)
	dialog.ShowForm("Generate diagram", "Create", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Notes", entry)},
		func(ok bool) {
			text := strings.TrimSpace(entry.Text)
			if !ok || text == "" {
				return
			}
			a.board.SetStatus("Generating diagram...")
			go func() {
				if _, err := svc.Create(context.Background(), text); err != nil {
					a.board.SetStatus("Diagram generation failed")
					fyne.Do(func() {
						dialog.ShowError(err, a.window)
						a.showDiagram(text)
					})
					return
				}
				a.board.SetStatus("Diagram added")
			}()
		}, a.window)
}

// editDiagram edits a diagram's source directly, or regenerates it from
// notes when some are given.
func (a *App) editDiagram(m state.Mermaid) {
	if m.Locked {
		return
	}
	code := widget.NewMultiLineEntry()
	code.SetText(m.Code)
	code.SetMinRowsVisible(10)
	code.TextStyle = fyne.TextStyle{Monospace: true}
	notes := widget.NewMultiLineEntry()
	notes.SetPlaceHolder("Optional: describe changes to regenerate")
	dialog.ShowForm("Edit diagram", "Save", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Source", code), widget.NewFormItem("Notes", notes)},
		func(ok bool) {
			if !ok {
				return
			}
			e, svc := a.opts.Engine, a.opts.Diagrams
			if text := strings.TrimSpace(notes.Text); text != "" && svc != nil {
				go func() {
					if err := svc.Update(context.Background(), m.ID, text, code.Text); err != nil {
						fyne.Do(func() { dialog.ShowError(err, a.window) })
					}
				}()
				return
			}
			e.SetMermaidCode(m.ID, code.Text)
			if svc != nil {
				go svc.Render(context.Background(), m.ID, code.Text)
			}
		}, a.window)
}

// FocusPeer scrolls the board to a peer's cursor.
func (a *App) FocusPeer(site string) {
	for _, p := range a.board.Peers() {
		if p.Site == site {
			a.opts.Engine.CenterOn(p.Position)
			return
		}
	}
}
