package task

import (
	"encoding/json"
	"errors"
	"testing"

	"siteplan/pkg/colorutil"
	"siteplan/pkg/geometry"
)

func items(statuses ...Status) []ChecklistItem {
	out := make([]ChecklistItem, len(statuses))
	for i, s := range statuses {
		out[i] = ChecklistItem{Item: "item", Status: s}
	}
	return out
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name string
		in   []ChecklistItem
		want Status
	}{
		{"empty", nil, StatusNotStarted},
		{"all not started", items(StatusNotStarted, StatusNotStarted), StatusNotStarted},
		{"blocked wins over everything", items(StatusDone, StatusBlocked, StatusFinalCheckAwaiting), StatusBlocked},
		{"all done", items(StatusDone, StatusDone), StatusDone},
		{"final check awaiting", items(StatusDone, StatusFinalCheckAwaiting, StatusInProgress), StatusFinalCheckAwaiting},
		{"in progress", items(StatusNotStarted, StatusInProgress), StatusInProgress},
		{"mix of not started and done", items(StatusNotStarted, StatusDone), StatusInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.in); got != tc.want {
				t.Fatalf("DeriveStatus = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, st := range Statuses {
		for _, in := range []string{st.Key(), st.String(), "  " + st.String() + " "} {
			got, err := ParseStatus(in)
			if err != nil || got != st {
				t.Errorf("ParseStatus(%q) = %v, %v", in, got, err)
			}
		}
	}
	if _, err := ParseStatus("nearly done"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestChecklistJSONUsesKeys(t *testing.T) {
	in := []ChecklistItem{{Item: "Paint", Status: StatusFinalCheckAwaiting}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[{"item":"Paint","status":"FINAL_CHECK_AWAITING"}]` {
		t.Fatalf("unexpected payload %s", data)
	}
	var out []ChecklistItem
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out[0] != in[0] {
		t.Fatalf("got %+v", out)
	}
}

func TestFilterAndPlaced(t *testing.T) {
	pos := &geometry.Point2D{X: 1, Y: 2}
	tasks := []Task{
		{ID: "a", OwnerID: "u1", Checklist: items(StatusDone), Position: pos},
		{ID: "b", OwnerID: "u1", Checklist: items(StatusBlocked)},
		{ID: "c", OwnerID: "u2", Checklist: items(StatusDone), Position: pos},
	}

	done := StatusDone
	if got := Filter(tasks, &done); len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("Filter(done) = %+v", got)
	}
	if got := Filter(tasks, nil); len(got) != 3 {
		t.Fatalf("Filter(all) = %d tasks", len(got))
	}
	if got := Placed(tasks, "u1"); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("Placed(u1) = %+v", got)
	}
}

func TestFormValidate(t *testing.T) {
	valid := Form{Title: "Install door", Checklist: items(StatusNotStarted)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid form: %v", err)
	}

	err := Form{Title: "  "}.Validate()
	if !errors.Is(err, ErrTitleRequired) || !errors.Is(err, ErrChecklistRequired) {
		t.Fatalf("expected title and checklist errors, got %v", err)
	}

	err = Form{Title: "x", Checklist: []ChecklistItem{{Item: " ", Status: StatusDone}, {Item: "ok", Status: Status(42)}}}.Validate()
	if !errors.Is(err, ErrEmptyItem) || !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected item errors, got %v", err)
	}
}

func TestFormNormalize(t *testing.T) {
	f := Form{
		Title: "  Fix window ",
		Checklist: []ChecklistItem{
			{Item: "measure", Status: StatusDone},
			{Item: "   ", Status: StatusInProgress},
			{Item: " order glass ", Status: StatusNotStarted},
		},
	}
	got := f.Normalize()
	if got.Title != "Fix window" {
		t.Fatalf("title %q", got.Title)
	}
	if len(got.Checklist) != 2 || got.Checklist[1].Item != "order glass" {
		t.Fatalf("checklist %+v", got.Checklist)
	}
}

func TestStatusColors(t *testing.T) {
	if got := colorutil.Hex(StatusBlocked.Color()); got != "#ff5252" {
		t.Fatalf("blocked color %s", got)
	}
	if got := colorutil.Hex(StatusBlocked.StrokeColor()); got != "#cc4242" {
		t.Fatalf("blocked stroke %s", got)
	}
}
