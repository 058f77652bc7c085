package todo

import (
	"errors"
	"reflect"
	"testing"

	"todo-cli/internal/model"
)

func TestDecodeAction_WireShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Action
	}{
		{`{"type":"add","data":{"todoItem":{"title":"Buy milk","details":"2L"}}}`, Add{Title: "Buy milk", Details: "2L"}},
		{`{"type":"add","data":{"title":"Flat"}}`, Add{Title: "Flat"}},
		{`{"type":"delete","data":{"id":"x"}}`, Delete{ID: "x"}},
		{`{"type":"toggleDone","data":{"id":"x"}}`, ToggleDone{ID: "x"}},
		{`{"type":"edit","data":{"id":"x","title":"T","details":"D"}}`, Edit{ID: "x", Title: "T", Details: "D"}},
		{`{"type":"onDragEnd","data":{"sourceIndex":0,"destinationIndex":2}}`, Reorder{SourceIndex: 0, DestinationIndex: 2}},
		{`{"type":"move","data":{"id":"a","targetId":"c"}}`, Move{ID: "a", TargetID: "c"}},
		{`{"type":"loadState","data":{"todoItems":[{"id":"a","title":"A","done":true}]}}`,
			LoadState{State: model.State{TodoItems: []model.TodoItem{{ID: "a", Title: "A", Done: true}}}}},
	}
	for _, tc := range cases {
		got, err := DecodeAction([]byte(tc.in))
		if err != nil {
			t.Fatalf("DecodeAction(%s): %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("DecodeAction(%s):\n got %#v\nwant %#v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeAction_UnknownTypeIsInvalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeAction([]byte(`{"type":"archive","data":{"id":"x"}}`))
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction; got %v", err)
	}
	if _, err := DecodeAction([]byte(`not json`)); err == nil || errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected plain decode error; got %v", err)
	}
}

func TestEncodeAction_DecodesBack(t *testing.T) {
	t.Parallel()

	for _, a := range []Action{
		Add{Title: "x"},
		Edit{ID: "i", Title: "t"},
		Move{ID: "a", TargetID: "b"},
		LoadState{State: model.State{TodoItems: []model.TodoItem{{ID: "a", Title: "A"}}}},
	} {
		b, err := EncodeAction(a)
		if err != nil {
			t.Fatalf("EncodeAction(%T): %v", a, err)
		}
		got, err := DecodeAction(b)
		if err != nil {
			t.Fatalf("DecodeAction(%s): %v", b, err)
		}
		if !reflect.DeepEqual(got, a) {
			t.Fatalf("encode/decode %T: got %#v", a, got)
		}
	}
	if _, err := EncodeAction(nil); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction for nil; got %v", err)
	}
}
