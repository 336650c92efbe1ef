package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tbourn/smm-pipeline/internal/domain"
)

func TestFeedback_Record_InvalidInput(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)
	it := newItem(t, db, "x", domain.StatusReview)

	if _, err := svc.Record(context.Background(), it.ID, RecordFeedbackInput{Kind: "liked"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown kind, got %v", err)
	}
	in := RecordFeedbackInput{Kind: "approved", ConfidenceBefore: f64Ptr(1.5)}
	if _, err := svc.Record(context.Background(), it.ID, in); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for confidence, got %v", err)
	}
}

func TestFeedback_Record_ItemNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)

	_, err := svc.Record(context.Background(), "missing", RecordFeedbackInput{Kind: "approved"})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	it := newItem(t, db, "gone", domain.StatusReview)
	if err := NewItemService(db).Delete(context.Background(), it.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = svc.Record(context.Background(), it.ID, RecordFeedbackInput{Kind: "approved"})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("deleted item: expected ErrItemNotFound, got %v", err)
	}
}

func TestFeedback_Record_RejectedKeepsReasonOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)
	items := NewItemService(db)
	ctx := context.Background()
	it := newItem(t, db, "tone test", domain.StatusScheduled)

	before := testutil.ToFloat64(feedbackTotal.WithLabelValues("rejected"))
	fb, err := svc.Record(ctx, it.ID, RecordFeedbackInput{
		Kind:            "rejected",
		RejectionReason: strPtr(" tone "),
		RejectionDetail: strPtr("too salesy"),
		EditedContent:   strPtr("ignored"),
	})
	require.NoError(t, err)
	require.Equal(t, "tone", *fb.RejectionReason)
	require.Nil(t, fb.EditedContent)
	require.Nil(t, fb.OriginalContent)
	require.Equal(t, before+1, testutil.ToFloat64(feedbackTotal.WithLabelValues("rejected")))

	got, err := items.Get(ctx, it.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, got.Status)
}

func TestFeedback_Record_EditedOverwritesContent(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)
	items := NewItemService(db)
	ctx := context.Background()

	it, err := items.Create(ctx, CreateItemInput{Title: "edit me", Content: strPtr("draft body")})
	require.NoError(t, err)

	fb, err := svc.Record(ctx, it.ID, RecordFeedbackInput{
		Kind:            "edited",
		EditedContent:   strPtr("polished body"),
		RejectionReason: strPtr("tone"),
	})
	require.NoError(t, err)
	require.Equal(t, "draft body", *fb.OriginalContent)
	require.Nil(t, fb.RejectionReason)

	got, err := items.Get(ctx, it.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusScheduled, got.Status)
	require.Equal(t, "polished body", *got.Content)

	// An empty edit still forces scheduled but leaves the body alone.
	_, err = svc.Record(ctx, it.ID, RecordFeedbackInput{Kind: "edited", EditedContent: strPtr("")})
	require.NoError(t, err)
	got, _ = items.Get(ctx, it.ID)
	require.Equal(t, "polished body", *got.Content)
}

// approved/edited always end in scheduled, rejected always in rejected,
// regardless of the prior status.
func TestFeedback_StatusForcing_Property(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)
	items := NewItemService(db)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		st := rapid.SampledFrom(domain.Statuses).Draw(rt, "status")
		kind := rapid.SampledFrom(domain.FeedbackKinds).Draw(rt, "kind")
		it := newItem(t, db, "prop", st)

		_, err := svc.Record(ctx, it.ID, RecordFeedbackInput{Kind: string(kind)})
		require.NoError(rt, err)

		got, err := items.Get(ctx, it.ID)
		require.NoError(rt, err)
		want := domain.StatusScheduled
		if kind == domain.FeedbackRejected {
			want = domain.StatusRejected
		}
		require.Equal(rt, want, got.Status)
	})
}

func TestFeedback_ListsAndStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)
	ctx := context.Background()

	st, err := svc.Stats(ctx, 7)
	require.NoError(t, err)
	require.Zero(t, st.Total)
	require.Equal(t, 0.0, st.ApprovalRate)

	a := newItem(t, db, "a", domain.StatusReview)
	b := newItem(t, db, "b", domain.StatusReview)
	for _, k := range []string{"approved", "edited", "rejected"} {
		_, err := svc.Record(ctx, a.ID, RecordFeedbackInput{Kind: k})
		require.NoError(t, err)
	}
	_, err = svc.Record(ctx, b.ID, RecordFeedbackInput{Kind: "rejected"})
	require.NoError(t, err)

	forA, err := svc.ListForItem(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, forA, 3)
	one, err := svc.Get(ctx, forA[0].ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, one.ItemID)
	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrFeedbackNotFound)
	if _, err := svc.ListForItem(ctx, "missing"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	rejected, total, err := svc.ListRecent(ctx, "rejected", 1)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.EqualValues(t, 2, total)
	_, _, err = svc.ListRecent(ctx, "liked", 10)
	require.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.ListRecent(ctx, "", 0)
	require.ErrorIs(t, err, ErrValidation)

	st, err = svc.Stats(ctx, 7)
	require.NoError(t, err)
	require.EqualValues(t, 4, st.Total)
	require.Equal(t, 0.5, st.ApprovalRate)
	require.EqualValues(t, 2, st.CountsByKind[domain.FeedbackRejected])

	// A clock far in the future leaves the window empty.
	svc.Now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	st, err = svc.Stats(ctx, 7)
	require.NoError(t, err)
	require.Zero(t, st.Total)

	for _, d := range []int{0, 91} {
		if _, err := svc.Stats(ctx, d); !errors.Is(err, ErrValidation) {
			t.Fatalf("Stats(%d): expected ErrValidation, got %v", d, err)
		}
	}
}
