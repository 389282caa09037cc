package dashboard

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"freelanceflow/internal/api"
	"freelanceflow/internal/devserver"
	"freelanceflow/internal/model"

	"golang.org/x/crypto/bcrypt"
)

func date(day int) *model.Date {
	d := model.NewDate(2025, time.March, day)
	return &d
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	clients := []model.Client{
		{ID: 1, Name: "A", Stage: model.StageLead, NextActionDate: date(9)},
		{ID: 2, Name: "B", Stage: model.StageActive, NextActionDate: date(2)},
		{ID: 3, Name: "C", Stage: model.StageActive},
		{ID: 4, Name: "D", Stage: model.StageLead, NextActionDate: date(5)},
		{ID: 5, Name: "E", Stage: model.StageLead, NextActionDate: date(1)},
		{ID: 6, Name: "F", Stage: model.StageProspect, NextActionDate: date(20)},
		{ID: 7, Name: "G", Stage: model.StageProspect, NextActionDate: date(3)},
	}
	s := Summarize("me@example.com", clients)

	want := map[model.Stage]int{
		model.StageLead:     3,
		model.StageProspect: 2,
		model.StageActive:   2,
		model.StageArchived: 0,
	}
	for st, n := range want {
		got, ok := s.StageCounts[st]
		if !ok || got != n {
			t.Fatalf("StageCounts[%s] = %d (present=%v), want %d", st, got, ok, n)
		}
	}
	if s.Total != 7 || s.Email != "me@example.com" {
		t.Fatalf("unexpected summary header %#v", s)
	}

	var order []int64
	for _, c := range s.Upcoming {
		order = append(order, c.ID)
	}
	wantOrder := []int64{5, 2, 7, 4, 1}
	if len(order) != len(wantOrder) {
		t.Fatalf("upcoming = %v, want %v", order, wantOrder)
	}
	for i := range wantOrder {
		if order[i] != wantOrder[i] {
			t.Fatalf("upcoming = %v, want %v", order, wantOrder)
		}
	}
}

func TestSummarize_IgnoresUnknownStages(t *testing.T) {
	t.Parallel()

	s := Summarize("me@example.com", []model.Client{
		{ID: 1, Name: "A", Stage: model.StageLead},
		{ID: 2, Name: "B", Stage: model.Stage("dormant")},
	})
	if len(s.StageCounts) != len(model.Stages) {
		t.Fatalf("stage keys = %v, want only the %d known stages", s.StageCounts, len(model.Stages))
	}
	if s.StageCounts[model.StageLead] != 1 {
		t.Fatalf("lead = %d, want 1", s.StageCounts[model.StageLead])
	}
	if s.Total != 2 {
		t.Fatalf("total = %d, want 2", s.Total)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	srv := devserver.New(devserver.Options{BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	ctx := context.Background()

	base := ts.URL + "/api"
	auth, err := api.New(base, nil).Register(ctx, "me@example.com", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	c := api.New(base, api.StaticToken(auth.AccessToken))
	if _, err := c.CreateClient(ctx, api.NewClient{Name: "Acme", Stage: model.StageActive, NextActionDate: date(4)}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	s, err := Load(ctx, c)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Email != "me@example.com" || s.StageCounts[model.StageActive] != 1 || len(s.Upcoming) != 1 {
		t.Fatalf("summary = %#v", s)
	}

	if _, err := Load(ctx, api.New(base, nil)); !api.IsUnauthorized(err) {
		t.Fatalf("expected 401 without credential, got %v", err)
	}
}
