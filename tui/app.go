package tui

import (
	"context"
	"filepipe/database/model"
	"filepipe/database/repository"
	L "filepipe/logger"
	"filepipe/pipeline"
	"filepipe/registry"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusContent
)

type tabId int

const (
	tabStatus tabId = iota
	tabFiles
)

const filesPageSize = 200

type tickMsg struct{}

type statusMsg struct {
	status *pipeline.Status
	stats  *pipeline.FileStatistics
}

type filesMsg struct {
	source string
	files  []model.FileRecord
	total  int64
}

type mappingsMsg []model.KnowledgeBaseMapping

// noticeMsg is shown in the status bar until the next action
type noticeMsg string

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

type modelTui struct {
	ctx            context.Context
	controller     *pipeline.Controller
	registry       *registry.Registry
	sources        []model.ScanSource
	mappings       map[string]model.KnowledgeBaseMapping
	status         *pipeline.Status
	stats          *pipeline.FileStatistics
	files          []model.FileRecord
	filesTotal     int64
	sidebarCursor  int
	contentCursor  int
	contentOffset  int
	selectedSource string
	notice         string
	focus          focusArea
	activeTab      tabId
	width          int
	height         int
}

func NewApp(ctx context.Context, controller *pipeline.Controller, reg *registry.Registry) *modelTui {
	return &modelTui{
		ctx:        ctx,
		controller: controller,
		registry:   reg,
		mappings:   map[string]model.KnowledgeBaseMapping{},
		focus:      focusSidebar,
		activeTab:  tabStatus,
	}
}

func (m modelTui) Init() tea.Cmd {
	return tea.Batch(m.fetchSources, m.fetchStatus, m.fetchMappings, m.fetchFiles, tick())
}

func (m modelTui) fetchSources() tea.Msg {
	sources, err := m.registry.ListSources(m.ctx, false)
	if err != nil {
		L.Error(fmt.Errorf("tui: failed to fetch sources: %w", err))
		return []model.ScanSource{}
	}
	return sources
}

func (m modelTui) fetchMappings() tea.Msg {
	mappings, err := m.registry.ListMappings(m.ctx)
	if err != nil {
		L.Error(fmt.Errorf("tui: failed to fetch mappings: %w", err))
		return mappingsMsg{}
	}
	return mappingsMsg(mappings)
}

func (m modelTui) fetchStatus() tea.Msg {
	status, err := m.controller.Status(m.ctx)
	if err != nil {
		L.Error(fmt.Errorf("tui: failed to fetch pipeline status: %w", err))
		return nil
	}
	stats, err := m.controller.FileStatistics(m.ctx)
	if err != nil {
		L.Error(fmt.Errorf("tui: failed to fetch file statistics: %w", err))
		return nil
	}
	return statusMsg{status: status, stats: stats}
}

func (m modelTui) fetchFiles() tea.Msg {
	page, err := m.controller.ListFiles(m.ctx, repository.FileRecordFilter{
		SourceId: m.selectedSource,
		Limit:    filesPageSize,
	})
	if err != nil {
		L.Error(fmt.Errorf("tui: failed to fetch files of %q: %w", m.selectedSource, err))
		return filesMsg{source: m.selectedSource}
	}
	return filesMsg{source: m.selectedSource, files: page.Files, total: page.Total}
}

// reprocess requeues the file under the cursor
func (m modelTui) reprocess() tea.Msg {
	if m.contentCursor >= len(m.files) {
		return nil
	}
	f := m.files[m.contentCursor]
	result, err := m.controller.Reprocess(m.ctx, []string{f.FileId})
	if err != nil {
		return noticeMsg(fmt.Sprintf("could not reprocess %s: %v", f.FileName, err))
	}
	if len(result.FailedFiles) > 0 {
		return noticeMsg(fmt.Sprintf("%s was not reprocessed: %s", f.FileName, result.FailedFiles[0].Error))
	}
	return noticeMsg(fmt.Sprintf("%s is queued again", f.FileName))
}

// togglePipeline records the desired state, a running serve applies it
func (m modelTui) togglePipeline() tea.Msg {
	action := pipeline.ACTION_START
	if m.status != nil && m.status.Running {
		action = pipeline.ACTION_STOP
	}
	result, err := m.controller.Control(m.ctx, action, "")
	if err != nil {
		return noticeMsg(fmt.Sprintf("could not %s the pipeline: %v", action, err))
	}
	return noticeMsg(fmt.Sprintf("pipeline is %s", result.Status))
}

func (m *modelTui) selectSource(cursor int) tea.Cmd {
	m.sidebarCursor = cursor
	m.selectedSource = ""
	if cursor > 0 && cursor <= len(m.sources) {
		m.selectedSource = m.sources[cursor-1].Name
	}
	m.contentCursor = 0
	m.contentOffset = 0
	return m.fetchFiles
}

func (m *modelTui) selectedSourceInfo() (*model.ScanSource, *model.KnowledgeBaseMapping) {
	for i := range m.sources {
		if m.sources[i].Name == m.selectedSource {
			if mp, ok := m.mappings[m.selectedSource]; ok {
				return &m.sources[i], &mp
			}
			return &m.sources[i], nil
		}
	}
	return nil, nil
}

func (m *modelTui) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.fetchSources, m.fetchStatus, m.fetchFiles, tick())

	case []model.ScanSource:
		m.sources = msg
		if m.sidebarCursor > len(m.sources) {
			return m, m.selectSource(0)
		}

	case mappingsMsg:
		m.mappings = map[string]model.KnowledgeBaseMapping{}
		for _, mp := range msg {
			m.mappings[mp.ScanConfigName] = mp
		}

	case statusMsg:
		m.status = msg.status
		m.stats = msg.stats

	case filesMsg:
		// drop pages of a source that is no longer selected
		if msg.source != m.selectedSource {
			return m, nil
		}
		m.files = msg.files
		m.filesTotal = msg.total
		if m.contentCursor >= len(m.files) {
			m.contentCursor = max(len(m.files)-1, 0)
		}

	case noticeMsg:
		m.notice = string(msg)
		return m, tea.Batch(m.fetchStatus, m.fetchFiles)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "1":
			m.focus = focusSidebar

		case "2":
			m.focus = focusContent

		case "tab":
			if m.focus == focusSidebar {
				m.focus = focusContent
			} else {
				m.focus = focusSidebar
			}

		case "3", "s", "S":
			if m.focus == focusContent {
				m.activeTab = tabStatus
				return m, m.fetchMappings
			}

		case "4", "f", "F":
			if m.focus == focusContent {
				m.activeTab = tabFiles
				return m, m.fetchFiles
			}

		case "p", "P":
			return m, m.togglePipeline

		case "r", "R":
			if m.focus == focusContent && m.activeTab == tabFiles {
				return m, m.reprocess
			}

		case "up", "k":
			if m.focus == focusSidebar {
				if m.sidebarCursor > 0 {
					return m, m.selectSource(m.sidebarCursor - 1)
				}
			} else if m.activeTab == tabFiles {
				if m.contentCursor > 0 {
					m.contentCursor--
					if m.contentCursor < m.contentOffset {
						m.contentOffset = m.contentCursor
					}
				}
			}

		case "down", "j":
			if m.focus == focusSidebar {
				if m.sidebarCursor < len(m.sources) {
					return m, m.selectSource(m.sidebarCursor + 1)
				}
			} else if m.activeTab == tabFiles {
				if m.contentCursor < len(m.files)-1 {
					m.contentCursor++
					// handwaving space for file list
					maxVisible := max(m.height-18, 1)
					if m.contentCursor >= m.contentOffset+maxVisible {
						m.contentOffset = m.contentCursor - maxVisible + 1
					}
				}
			}
		}
	}

	return m, nil
}
