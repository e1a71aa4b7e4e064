package main

import (
	"fmt"
	"time"

	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	ownStyle     = cellStyle.Foreground(lipgloss.Color("86"))
	fullStyle    = cellStyle.Foreground(lipgloss.Color("46"))
	partialStyle = cellStyle.Foreground(lipgloss.Color("214"))
	failedStyle  = cellStyle.Foreground(lipgloss.Color("196"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

// render lays the ranking out as a terminal table, one column per problem.
func render(r *ranking.Ranking) string {
	headers := []string{"Rank", "User", "Org"}
	for _, p := range r.Problems {
		headers = append(headers, p.Problem.Code)
	}
	headers = append(headers, "Points", "Time")

	rows := make([][]string, 0, len(r.Standings))
	for _, s := range r.Standings {
		row := []string{s.Label(), s.Profile.LongDisplayName, s.Profile.Organization}
		for _, cell := range s.Profile.Problems {
			row = append(row, formatCell(cell))
		}
		row = append(row, s.Profile.Points.String(), formatDuration(time.Duration(s.Profile.Cumtime)*time.Second))
		rows = append(rows, row)
	}

	firstProblem, lastProblem := 3, 3+len(r.Problems)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			s := r.Standings[row]
			if col >= firstProblem && col < lastProblem {
				return stateStyle(s.Profile.Problems[col-firstProblem])
			}
			if s.Own {
				return ownStyle
			}
			return cellStyle
		})
	return t.String()
}

func formatCell(b *ranking.BestSolution) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", b.Points.String(), formatDuration(b.Time))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func stateStyle(b *ranking.BestSolution) lipgloss.Style {
	if b == nil {
		return cellStyle
	}
	switch b.State {
	case ranking.StateFull:
		return fullStyle
	case ranking.StatePartial:
		return partialStyle
	default:
		return failedStyle
	}
}
