package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/llm/mock"
	"github.com/kitbuilder587/stock-agent/internal/prompts"
	searchmock "github.com/kitbuilder587/stock-agent/internal/search/mock"
)

const doc = `# Stocks
TSLA, NVDA

# Instructions
Use tables to display data
Always include sources

# Query
Summarize analyst recommendations for {stocks}

# Web Agent Instructions
Cite every article
`

func testDeps() Deps {
	return Deps{
		LLM:     mock.New(),
		Toolkit: Toolkit{Market: testMarket(), Search: searchmock.New()},
	}
}

func TestBuild_Single(t *testing.T) {
	a, err := Build(domain.ModeSingle, prompts.Parse(doc), testDeps())
	require.NoError(t, err)

	single, ok := a.(*ToolAgent)
	require.True(t, ok)
	assert.Equal(t, SingleAgentName, single.Name())
	assert.Equal(t, []string{"Use tables to display data", "Always include sources"}, single.Instructions())
	assert.Equal(t, []string{ToolStockPrice, ToolRecommendations, ToolCompanyInfo}, single.ToolNames())
}

func TestBuild_SingleMissingInstructions(t *testing.T) {
	_, err := Build(domain.ModeSingle, prompts.Parse("# Query\nq\n"), testDeps())
	assert.True(t, errors.Is(err, domain.ErrMissingSection), "got %v", err)
}

func TestBuild_Team(t *testing.T) {
	a, err := Build(domain.ModeTeam, prompts.Parse(doc), testDeps())
	require.NoError(t, err)

	team, ok := a.(*Team)
	require.True(t, ok)
	require.Len(t, team.Members(), 2)

	web := team.Members()[0].(*ToolAgent)
	fin := team.Members()[1].(*ToolAgent)

	assert.Equal(t, WebAgentName, web.Name())
	assert.Equal(t, []string{"Cite every article"}, web.Instructions())
	assert.Equal(t, []string{ToolWebSearch, ToolCompanyNews}, web.ToolNames())

	assert.Equal(t, FinanceAgentName, fin.Name())
	assert.Equal(t, DefaultFinanceInstructions, fin.Instructions())

	// no team section, leader falls back to the instructions section
	assert.Equal(t, []string{"Use tables to display data", "Always include sources"}, team.cfg.Instructions)
}

func TestBuild_TeamDefaults(t *testing.T) {
	a, err := Build(domain.ModeTeam, prompts.Parse("# Query\nq\n"), testDeps())
	require.NoError(t, err)

	team := a.(*Team)
	assert.Equal(t, DefaultTeamInstructions, team.cfg.Instructions)
	assert.Equal(t, DefaultWebInstructions, team.Members()[0].(*ToolAgent).Instructions())
}

func TestBuild_UnknownMode(t *testing.T) {
	_, err := Build(domain.AgentMode("swarm"), prompts.Parse(doc), testDeps())
	assert.ErrorIs(t, err, domain.ErrUnknownMode)
}
