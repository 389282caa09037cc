package tui

import (
	"log"

	"freelanceflow/internal/store"
)

// saveState records the current screen so the next launch can reopen it.
func (m *appModel) saveState() {
	st := store.TUIState{Version: 1, View: m.view.String()}
	if m.client != nil {
		st.ClientID = m.client.ID()
	}
	if m.project != nil {
		st.ProjectID = m.project.ID()
	}
	if m.clients != nil {
		f := m.clients.Filters()
		st.ClientQuery = f["q"]
		st.ClientStage = f["stage"]
	} else {
		st.ClientQuery = m.state.ClientQuery
		st.ClientStage = m.state.ClientStage
	}
	m.state = st
	m.persist()
}

// resetState forgets the last screen (explicit sign-out).
func (m *appModel) resetState() {
	m.state = store.TUIState{Version: 1}
	m.persist()
}

func (m *appModel) persist() {
	if m.opts.DB == nil {
		return
	}
	st := m.state
	if err := m.opts.DB.SaveTUIState(m.ctx, &st); err != nil {
		log.Printf("tui: save state: %v", err)
	}
}
