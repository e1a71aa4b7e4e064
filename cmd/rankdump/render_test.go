package main

import (
	"strings"
	"testing"
	"time"

	"github.com/ZJUSCT/CSRank/internal/database/models"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00:00", formatDuration(0))
	assert.Equal(t, "1:02:03", formatDuration(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "26:00:00", formatDuration(26*time.Hour))
}

func TestRender(t *testing.T) {
	r := &ranking.Ranking{
		Problems: []models.ContestProblem{
			{ID: 1, Problem: models.Problem{Code: "aa"}},
			{ID: 2, Problem: models.Problem{Code: "bb"}},
		},
		Standings: []ranking.Standing{
			{Own: true, Profile: ranking.Profile{
				LongDisplayName: "Alice (alice)",
				Points:          decimal.NewFromInt(40),
				Cumtime:         600,
				Problems: []*ranking.BestSolution{
					{Points: decimal.NewFromInt(40), Time: 10 * time.Minute, State: ranking.StatePartial},
					nil,
				},
			}},
			{Rank: 1, Profile: ranking.Profile{
				LongDisplayName: "bob",
				Organization:    "ZJU",
				Points:          decimal.NewFromInt(100),
				Cumtime:         3600,
				Problems: []*ranking.BestSolution{
					nil,
					{Points: decimal.NewFromInt(100), Time: time.Hour, State: ranking.StateFull},
				},
			}},
		},
	}

	out := render(r)
	for _, want := range []string{"Rank", "aa", "bb", "Alice (alice)", "40 (0:10:00)", "bob", "ZJU", "100 (1:00:00)", "1:00:00"} {
		assert.Contains(t, out, want)
	}
	lines := strings.Split(out, "\n")
	var ownLine, bobLine int
	for i, l := range lines {
		if strings.Contains(l, "Alice (alice)") {
			ownLine = i
		}
		if strings.Contains(l, "bob") {
			bobLine = i
		}
	}
	assert.Less(t, ownLine, bobLine)
	assert.Contains(t, lines[ownLine], "-")
}
