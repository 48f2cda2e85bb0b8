package mongostore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
)

func TestBlockFilter(t *testing.T) {
	t.Run("whole track", func(t *testing.T) {
		got := blockFilter("track_1", interval.Region{})
		want := bson.D{{Key: "name", Value: "track_1"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("blockFilter() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("region", func(t *testing.T) {
		got := blockFilter("track_1", interval.Region{From: 22, To: 50})
		window := bson.D{{Key: "$gte", Value: int64(22)}, {Key: "$lte", Value: int64(50)}}
		want := bson.D{
			{Key: "name", Value: "track_1"},
			{Key: "$or", Value: bson.A{
				bson.D{{Key: "start", Value: window}},
				bson.D{{Key: "end", Value: window}},
			}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("blockFilter() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"mongodb://localhost:27017", "mongodb://localhost:27017"},
		{"mongodb://user:secret@db:27017/x", "mongodb://user:xxxxx@db:27017/x"},
		{"mongodb://user@db:27017", "mongodb://user@db:27017"},
	}
	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCheckReplaceSize(t *testing.T) {
	tests := []struct {
		name         string
		transactions bool
		n            int
		wantErr      bool
	}{
		{"standalone large", false, MaxTransactionBlocks * 10, false},
		{"transaction at limit", true, MaxTransactionBlocks, false},
		{"transaction over limit", true, MaxTransactionBlocks + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkReplaceSize(tt.transactions, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkReplaceSize(%v, %d) error = %v, wantErr %v", tt.transactions, tt.n, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
			}
		})
	}
}
