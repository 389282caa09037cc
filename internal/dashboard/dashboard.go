// Package dashboard builds the signed-in landing summary.
package dashboard

import (
	"context"
	"sort"

	"freelanceflow/internal/api"
	"freelanceflow/internal/model"

	"golang.org/x/sync/errgroup"
)

// UpcomingLimit caps the "next actions" list.
const UpcomingLimit = 5

type Summary struct {
	Email       string              `json:"email"`
	Total       int                 `json:"total"`
	StageCounts map[model.Stage]int `json:"stage_counts"`
	Upcoming    []model.Client      `json:"upcoming"`
}

// Source is the subset of the API the summary reads.
type Source interface {
	Me(ctx context.Context) (model.User, error)
	ListClients(ctx context.Context, f api.ClientFilter) ([]model.Client, error)
}

func Load(ctx context.Context, src Source) (Summary, error) {
	var (
		user    model.User
		clients []model.Client
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = src.Me(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		clients, err = src.ListClients(gctx, api.ClientFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Summarize(user.Email, clients), nil
}

// Summarize counts clients per stage (every stage present, zero included) and picks
// the clients with the soonest next action date.
func Summarize(email string, clients []model.Client) Summary {
	s := Summary{
		Email:       email,
		Total:       len(clients),
		StageCounts: make(map[model.Stage]int, len(model.Stages)),
		Upcoming:    []model.Client{},
	}
	for _, st := range model.Stages {
		s.StageCounts[st] = 0
	}
	for _, c := range clients {
		if c.Stage.Valid() {
			s.StageCounts[c.Stage]++
		}
		if c.NextActionDate != nil && !c.NextActionDate.IsZero() {
			s.Upcoming = append(s.Upcoming, c)
		}
	}
	sort.SliceStable(s.Upcoming, func(i, j int) bool {
		return s.Upcoming[i].NextActionDate.Before(s.Upcoming[j].NextActionDate.Time)
	})
	if len(s.Upcoming) > UpcomingLimit {
		s.Upcoming = s.Upcoming[:UpcomingLimit]
	}
	return s
}
