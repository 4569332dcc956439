package commsutil

import (
	"encoding/json"
	"testing"
)

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{
			name:  "command envelope",
			input: map[string]any{"command": "library_list", "args": map[string]any{}},
			want:  `{"args":{},"command":"library_list"}`,
		},
		{
			name:  "struct",
			input: struct{ Name string }{Name: "test"},
			want:  `{"Name":"test"}`,
		},
		{
			name:  "nil",
			input: nil,
			want:  "null",
		},
		{
			name:  "slice",
			input: []int{101, 202},
			want:  "[101,202]",
		},
		{
			name:    "channel is not serializable",
			input:   make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatal("commsutil:codec_test - expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}

			got := string(data)
			if got != tt.want {
				t.Errorf("commsutil:codec_test - EncodePayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		target  any
		check   func(t *testing.T, target any)
		wantErr bool
	}{
		{
			name:   "numbers stay exact",
			data:   `{"playlist_id":9007199254740993,"limit":5}`,
			target: &map[string]any{},
			check: func(t *testing.T, target any) {
				m := *target.(*map[string]any)
				n, ok := m["playlist_id"].(json.Number)
				if !ok {
					t.Fatalf("commsutil:codec_test - expected json.Number, got %T", m["playlist_id"])
				}
				if n.String() != "9007199254740993" {
					t.Errorf("commsutil:codec_test - playlist_id = %s", n)
				}
			},
		},
		{
			name: "decode struct",
			data: `{"Name":"test","Age":30}`,
			target: &struct {
				Name string
				Age  int
			}{},
			check: func(t *testing.T, target any) {
				s := target.(*struct {
					Name string
					Age  int
				})
				if s.Name != "test" || s.Age != 30 {
					t.Errorf("commsutil:codec_test - decoded = %+v", s)
				}
			},
		},
		{
			name:    "invalid json",
			data:    `{invalid}`,
			target:  &map[string]any{},
			wantErr: true,
		},
		{
			name:    "empty data",
			data:    "",
			target:  &map[string]any{},
			wantErr: true,
		},
		{
			name:    "trailing data",
			data:    `{"a":1}{"b":2}`,
			target:  &map[string]any{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DecodePayload([]byte(tt.data), tt.target)

			if tt.wantErr {
				if err == nil {
					t.Fatal("commsutil:codec_test - expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}

			if tt.check != nil {
				tt.check(t, tt.target)
			}
		})
	}
}
