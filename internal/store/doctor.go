package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type DoctorIssueLevel string

const (
	DoctorIssueLevelError DoctorIssueLevel = "error"
	DoctorIssueLevelWarn  DoctorIssueLevel = "warn"
)

var ErrDoctorIssuesFound = errors.New("doctor found errors")

type DoctorIssue struct {
	Level   DoctorIssueLevel `json:"level"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	ItemID  string           `json:"itemId,omitempty"`
	Index   *int             `json:"index,omitempty"`
}

type DoctorReport struct {
	Key    string        `json:"key"`
	Items  int           `json:"items"`
	Issues []DoctorIssue `json:"issues"`
}

func (r DoctorReport) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == DoctorIssueLevelError {
			return true
		}
	}
	return false
}

// rawItem mirrors model.TodoItem but keeps fields optional so missing ones
// can be reported instead of silently zeroed.
type rawItem struct {
	ID    *string `json:"id"`
	Title *string `json:"title"`
	Done  *bool   `json:"done"`
}

// Doctor inspects the raw stored value under key. Sessions load a malformed
// value as an empty list; Doctor says why.
func Doctor(ctx context.Context, b Backend, key string) DoctorReport {
	rep := DoctorReport{Key: key, Issues: []DoctorIssue{}}
	add := func(level DoctorIssueLevel, code, msg string) {
		rep.Issues = append(rep.Issues, DoctorIssue{Level: level, Code: code, Message: msg})
	}

	raw, ok, err := b.Get(ctx, key)
	switch {
	case err != nil:
		add(DoctorIssueLevelError, "read_failed", err.Error())
		return rep
	case !ok || len(bytes.TrimSpace(raw)) == 0:
		add(DoctorIssueLevelWarn, "state_missing", "nothing stored yet; sessions start with an empty list")
		return rep
	}

	var doc struct {
		TodoItems *[]json.RawMessage `json:"todoItems"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		add(DoctorIssueLevelError, "invalid_json", err.Error())
		return rep
	}
	if doc.TodoItems == nil {
		add(DoctorIssueLevelError, "missing_todo_items", "stored value has no todoItems array")
		return rep
	}

	seen := map[string]int{}
	for i, msg := range *doc.TodoItems {
		idx := i
		issue := func(level DoctorIssueLevel, code, m, id string) {
			rep.Issues = append(rep.Issues, DoctorIssue{Level: level, Code: code, Message: m, ItemID: id, Index: &idx})
		}
		var it rawItem
		if err := json.Unmarshal(msg, &it); err != nil {
			issue(DoctorIssueLevelError, "item_invalid", err.Error(), "")
			continue
		}
		id := ""
		if it.ID != nil {
			id = *it.ID
		}
		if strings.TrimSpace(id) == "" {
			issue(DoctorIssueLevelError, "item_missing_id", "item has no id", "")
		} else if prev, dup := seen[id]; dup {
			issue(DoctorIssueLevelError, "duplicate_id", fmt.Sprintf("id also used by item %d", prev), id)
		} else {
			seen[id] = i
		}
		if it.Title == nil || strings.TrimSpace(*it.Title) == "" {
			issue(DoctorIssueLevelWarn, "blank_title", "item has an empty title", id)
		}
		if it.Done == nil {
			issue(DoctorIssueLevelWarn, "missing_done", "item has no done flag (reads as open)", id)
		}
	}
	rep.Items = len(*doc.TodoItems)
	return rep
}
