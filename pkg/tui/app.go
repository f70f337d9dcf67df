package tui

import (
	"context"
	"io"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pluqqy/pdfdeck/pkg/files"
	"github.com/pluqqy/pdfdeck/pkg/models"
	"github.com/pluqqy/pdfdeck/pkg/reflector"
	"github.com/pluqqy/pdfdeck/pkg/render"
	"github.com/pluqqy/pdfdeck/pkg/session"
	"github.com/pluqqy/pdfdeck/pkg/tracker"
)

// Config wires the app to its collaborators. Nil fields get the stock
// implementation.
type Config struct {
	Settings  *models.Settings
	Client    session.DocumentService
	Decoder   render.Decoder
	Sources   session.SourceResolver
	Saver     session.Saver
	Logger    *slog.Logger
	Clipboard func(text string) error
	// Files are opened in tabs on start
	Files []string
}

// rows taken by header, tab strip, pane borders and status line
const chromeRows = 6

// App is the root bubbletea model
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	registry *session.Registry
	ctrl     *session.Controller
	viewer   *session.Viewer
	flows    *session.Flows
	bridge   *bridge
	copy     func(string) error
	initial  []string

	view     reflector.View
	canUndo  map[string]bool
	undoKey  string
	version  uint64
	viewport viewport.Model
	spinner  spinner.Model
	busy     int

	prompt    *PromptModel
	confirm   *ConfirmationModel
	pending   *promptRequest
	queue     []promptRequest
	status    *StatusManager
	width     int
	height    int
	toolbarUp int
}

// opDoneMsg marks the end of a command started by a key
type opDoneMsg struct{}

// canUndoMsg carries the undo flag of a tab
type canUndoMsg struct {
	tabID   string
	canUndo bool
}

// NewApp builds the app and its session stack
func NewApp(cfg Config) *App {
	settings := cfg.Settings
	if settings == nil {
		settings = models.DefaultSettings()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	decoder := cfg.Decoder
	if decoder == nil {
		decoder = render.NewPDFDecoder()
	}
	sources := cfg.Sources
	if sources == nil {
		sources = files.PathResolver{}
	}
	saver := cfg.Saver
	if saver == nil {
		saver = files.NewDownloadSaver(settings.Output.DownloadDir)
	}
	copyFn := cfg.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := newBridge(ctx.Done())

	registry := session.NewRegistry()
	registry.OnChange(b.signal)

	pipeline := render.NewPipeline(render.NewBoxRasterizer(), render.Options{
		InitialPages:    settings.View.InitialPages,
		BackgroundDelay: settings.View.BackgroundDelay,
		MaxWidth:        settings.View.MaxWidth,
	}, logger)
	viewer := session.NewViewer(registry, pipeline, render.NewBuffer(1, b.signal), tracker.Config{
		VisibilityDebounce: settings.View.VisibilityDebounce,
		ScrollDebounce:     settings.View.ScrollDebounce,
	}, logger)
	ctrl := session.NewController(registry, cfg.Client, decoder, viewer,
		session.WithLogger(logger),
		session.WithZoomDebounce(settings.View.ZoomDebounce),
		session.WithSaver(saver),
	)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorActive))

	return &App{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		registry: registry,
		ctrl:     ctrl,
		viewer:   viewer,
		flows:    session.NewFlows(ctrl, b, b, sources),
		bridge:   b,
		copy:     copyFn,
		initial:  cfg.Files,
		canUndo:  make(map[string]bool),
		viewport: viewport.New(40, 10),
		spinner:  sp,
		prompt:   NewPrompt(),
		confirm:  NewConfirmation(),
		status:   NewStatusManager(),
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.bridge.waitForPrompt(),
		a.bridge.waitForNotice(),
		a.bridge.waitForChange(),
		a.spinner.Tick,
	}
	for _, path := range a.initial {
		cmds = append(cmds, a.run(func(ctx context.Context) { a.flows.OpenPath(ctx, path) }))
	}
	return tea.Batch(cmds...)
}

// run starts fn as a command and tracks it in the busy indicator
func (a *App) run(fn func(ctx context.Context)) tea.Cmd {
	a.busy++
	return func() tea.Msg {
		fn(a.ctx)
		return opDoneMsg{}
	}
}

func (a *App) quit() tea.Cmd {
	a.ctrl.Shutdown()
	a.cancel()
	return tea.Quit
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.prompt.SetWidth(msg.Width)
		a.layout()
		return a, nil

	case promptRequestMsg:
		a.queue = append(a.queue, promptRequest(msg))
		return a, tea.Batch(a.nextPrompt(), a.bridge.waitForPrompt())

	case noticeMsg:
		cmd := a.status.ShowNotice(session.Notice(msg))
		return a, tea.Batch(cmd, a.bridge.waitForNotice())

	case stateChangedMsg:
		return a, tea.Batch(a.refresh(), a.bridge.waitForChange())

	case canUndoMsg:
		a.canUndo[msg.tabID] = msg.canUndo
		a.project()
		return a, nil

	case opDoneMsg:
		a.busy = max(a.busy-1, 0)
		a.undoKey = ""
		return a, a.refresh()

	case ClearStatusMsg:
		a.status.HandleClear(msg)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		a.scrolled()
		return a, cmd

	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return a.quit()
	}
	if a.confirm.Active() {
		return a.confirm.Update(msg)
	}
	if a.prompt.Active() {
		switch msg.Type {
		case tea.KeyEnter:
			return a.answer(promptReply{value: a.prompt.Value(), ok: true})
		case tea.KeyEsc:
			return a.answer(promptReply{})
		}
		return a.prompt.Update(msg)
	}
	if a.status.IsBlocking() && msg.Type == tea.KeyEsc {
		a.status.Clear()
		return nil
	}

	view := a.view
	switch msg.String() {
	case "q":
		return a.quit()
	case "tab":
		return a.switchTab(1)
	case "shift+tab":
		return a.switchTab(-1)
	case "o":
		return a.run(a.flows.OpenFile)
	case "i":
		return a.run(a.flows.AttachFile)
	case "m":
		return a.run(a.flows.Merge)
	}

	if !view.HasActive {
		return nil
	}
	switch msg.String() {
	case "up", "k":
		return a.selectPage(view.CurrentPage - 1)
	case "down", "j":
		return a.selectPage(view.CurrentPage + 1)
	case "home", "g":
		return a.selectPage(1)
	case "end", "G":
		return a.selectPage(view.PageCount)
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		a.scrolled()
		return cmd
	case "K":
		if view.Buttons.MoveUp {
			return a.run(a.flows.MoveUp)
		}
	case "J":
		if view.Buttons.MoveDown {
			return a.run(a.flows.MoveDown)
		}
	case "d":
		if view.Buttons.Delete {
			return a.run(a.flows.DeleteCurrent)
		}
	case "z", "u":
		if view.Buttons.Undo {
			return a.run(a.flows.Undo)
		}
	case "+", "=":
		if view.Buttons.ZoomIn {
			return a.run(a.flows.ZoomIn)
		}
	case "-":
		if view.Buttons.ZoomOut {
			return a.run(a.flows.ZoomOut)
		}
	case "a":
		if view.Buttons.AddPages {
			return a.run(a.flows.AddPages)
		}
	case "s":
		if view.Buttons.Save {
			return a.run(a.flows.Save)
		}
	case "S":
		if view.Buttons.SaveAs {
			return a.run(a.flows.SaveAs)
		}
	case "x":
		tabID := a.registry.ActiveID()
		return a.run(func(ctx context.Context) { a.flows.CloseTab(ctx, tabID) })
	case "c":
		if err := a.copy(view.FileID); err != nil {
			return a.status.ShowNotice(session.Notice{Level: session.NoticeError, Message: "Failed to copy file id: " + err.Error()})
		}
		return a.status.ShowNotice(session.Notice{Level: session.NoticeSuccess, Message: "Copied file id " + view.FileID})
	}
	return nil
}

func (a *App) switchTab(delta int) tea.Cmd {
	tabs := a.view.Tabs
	if len(tabs) < 2 {
		return nil
	}
	current := 0
	for i, t := range tabs {
		if t.IsActive {
			current = i
		}
	}
	next := tabs[(current+delta+len(tabs))%len(tabs)].ID
	return a.run(func(ctx context.Context) { a.flows.Switch(ctx, next) })
}

func (a *App) selectPage(page int) tea.Cmd {
	if page < 1 || page > a.view.PageCount {
		return nil
	}
	a.flows.Select(page)
	return a.refresh()
}

// nextPrompt shows the next queued question when nothing is on screen
func (a *App) nextPrompt() tea.Cmd {
	if a.pending != nil || len(a.queue) == 0 {
		return nil
	}
	req := a.queue[0]
	a.queue = a.queue[1:]
	a.pending = &req

	if req.confirm {
		a.confirm.Show(ConfirmationConfig{
			Title:       req.question.Title,
			Message:     req.question.Prompt,
			Destructive: true,
			Width:       a.width,
		},
			func() tea.Cmd { return a.answer(promptReply{ok: true}) },
			func() tea.Cmd { return a.answer(promptReply{}) },
		)
		return nil
	}
	return a.prompt.Show(req.question)
}

// answer replies to the pending question and moves on
func (a *App) answer(r promptReply) tea.Cmd {
	if a.pending == nil {
		return nil
	}
	a.pending.reply <- r
	a.pending = nil
	a.prompt.Hide()
	return a.nextPrompt()
}

// refresh re-projects the registry and syncs the page viewport
func (a *App) refresh() tea.Cmd {
	a.project()

	buffer := a.viewer.Buffer()
	if v := buffer.Version(); v != a.version {
		a.version = v
		a.viewport.SetContent(buffer.Content())
	}
	if top, ok := a.viewer.TakeJump(); ok {
		a.viewport.SetYOffset(top)
		a.scrolled()
	}

	return a.checkUndo()
}

func (a *App) project() {
	snap := a.registry.Snapshot()
	a.view = reflector.Project(snap, a.canUndo[snap.ActiveID])
	a.layout()
}

// checkUndo asks the service for the undo flag when the active document
// may have changed
func (a *App) checkUndo() tea.Cmd {
	if !a.view.HasActive {
		return nil
	}
	tabID := a.registry.ActiveID()
	key := tabID + "/" + a.view.FileID
	if key == a.undoKey {
		return nil
	}
	a.undoKey = key

	ctx := a.ctx
	return func() tea.Msg {
		can, err := a.ctrl.CanUndo(ctx, tabID)
		if err != nil {
			a.logger.Debug("Undo status unavailable.", "tab", tabID, "error", err)
			return nil
		}
		return canUndoMsg{tabID: tabID, canUndo: can}
	}
}

func (a *App) scrolled() {
	a.viewer.Scrolled(a.viewport.YOffset, a.viewport.Height)
}

// layout sizes the viewport to what the chrome leaves over
func (a *App) layout() {
	if a.width == 0 || a.height == 0 {
		return
	}
	a.toolbarUp = lipgloss.Height(renderToolbar(a.width, a.view.Buttons, a.view.HasActive))
	a.viewport.Width = max(a.width-pageListWidth-4, 10)
	a.viewport.Height = max(a.height-chromeRows-a.toolbarUp, 3)
}

// View implements tea.Model
func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	busy := ""
	if a.busy > 0 {
		busy = a.spinner.View()
	}
	header := renderHeader(a.width, a.view, busy)
	tabs := renderTabs(a.width, a.view.Tabs)

	var body string
	if a.view.HasActive {
		list := InactiveBorderStyle.Render(renderPageList(a.viewport.Height, a.view.Pages))
		pages := ActiveBorderStyle.Render(a.viewport.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, list, pages)
	} else {
		empty := EmptyStyle.Render("No document open.") + "\n\n" +
			DescriptionStyle.Render("o open a PDF · i attach a file id · m merge files")
		body = lipgloss.Place(a.width, a.viewport.Height+2, lipgloss.Center, lipgloss.Center, empty)
	}

	var footer string
	switch {
	case a.confirm.Active():
		footer = a.confirm.View()
	case a.prompt.Active():
		footer = a.prompt.View()
	default:
		footer = renderToolbar(a.width, a.view.Buttons, a.view.HasActive)
		if status := a.status.View(a.width); status != "" {
			footer = lipgloss.JoinVertical(lipgloss.Left, footer, status)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, body, footer)
}
