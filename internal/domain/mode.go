package domain

// AgentMode - how the agents are arranged for a run
type AgentMode string

const (
	ModeSingle AgentMode = "single"
	ModeTeam   AgentMode = "team"
)

func (m AgentMode) IsValid() bool {
	switch m {
	case ModeSingle, ModeTeam:
		return true
	}
	return false
}

func (m AgentMode) String() string { return string(m) }
