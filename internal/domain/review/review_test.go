package review

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReview(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	t.Run("creates pending review", func(t *testing.T) {
		r, err := NewReview(tenantID, botID, 5, "Great support, fast answers!", ReviewSourceWidget)

		require.NoError(t, err)
		assert.NotNil(t, r)
		assert.Equal(t, tenantID, r.TenantID)
		assert.Equal(t, botID, r.BotID)
		assert.Equal(t, 5, r.Rating)
		assert.Equal(t, "Great support, fast answers!", r.Comment)
		assert.Equal(t, ReviewStatusPending, r.Status)
		assert.Equal(t, ReviewSourceWidget, r.Source)
		assert.Nil(t, r.ConversationID)
		assert.Nil(t, r.ModeratedAt)
		assert.True(t, r.IsPending())
		assert.Len(t, r.GetDomainEvents(), 1)
	})

	t.Run("accepts every rating from 1 to 5", func(t *testing.T) {
		for rating := 1; rating <= 5; rating++ {
			r, err := NewReview(tenantID, botID, rating, "", ReviewSourceAPI)
			require.NoError(t, err)
			assert.Equal(t, rating, r.Rating)
		}
	})

	t.Run("rejects rating out of range", func(t *testing.T) {
		for _, rating := range []int{0, 6, -1, 100} {
			r, err := NewReview(tenantID, botID, rating, "", ReviewSourceWidget)
			assert.Error(t, err, "rating %d should be rejected", rating)
			assert.Nil(t, r)
		}
	})

	t.Run("allows empty comment", func(t *testing.T) {
		r, err := NewReview(tenantID, botID, 4, "", ReviewSourceWidget)

		require.NoError(t, err)
		assert.Empty(t, r.Comment)
	})

	t.Run("rejects oversized comment", func(t *testing.T) {
		r, err := NewReview(tenantID, botID, 4, strings.Repeat("x", 2001), ReviewSourceWidget)

		assert.Error(t, err)
		assert.Nil(t, r)
	})

	t.Run("rejects unknown source", func(t *testing.T) {
		r, err := NewReview(tenantID, botID, 4, "", ReviewSource("email"))

		assert.Error(t, err)
		assert.Nil(t, r)
	})

	t.Run("rejects nil bot ID", func(t *testing.T) {
		r, err := NewReview(tenantID, uuid.Nil, 4, "", ReviewSourceWidget)

		assert.Error(t, err)
		assert.Nil(t, r)
	})
}

func TestReview_SetVisitor(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	t.Run("sets name and normalized email", func(t *testing.T) {
		r, _ := NewReview(tenantID, botID, 5, "", ReviewSourceWidget)

		err := r.SetVisitor("Jamie", "  Jamie@Example.COM ")

		require.NoError(t, err)
		assert.Equal(t, "Jamie", r.VisitorName)
		assert.Equal(t, "jamie@example.com", r.VisitorEmail)
	})

	t.Run("allows empty visitor info", func(t *testing.T) {
		r, _ := NewReview(tenantID, botID, 5, "", ReviewSourceWidget)

		assert.NoError(t, r.SetVisitor("", ""))
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		r, _ := NewReview(tenantID, botID, 5, "", ReviewSourceWidget)

		assert.Error(t, r.SetVisitor("Jamie", "not-an-email"))
	})

	t.Run("rejects oversized name", func(t *testing.T) {
		r, _ := NewReview(tenantID, botID, 5, "", ReviewSourceWidget)

		assert.Error(t, r.SetVisitor(strings.Repeat("n", 101), ""))
	})
}

func TestReview_LinkConversation(t *testing.T) {
	r, _ := NewReview(uuid.New(), uuid.New(), 5, "", ReviewSourceWidget)
	conversationID := uuid.New()

	require.NoError(t, r.LinkConversation(conversationID))
	require.NotNil(t, r.ConversationID)
	assert.Equal(t, conversationID, *r.ConversationID)

	assert.Error(t, r.LinkConversation(uuid.Nil))
}

func TestReview_Moderation(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	newReview := func() *Review {
		r, _ := NewReview(tenantID, botID, 4, "Solid", ReviewSourceWidget)
		r.ClearDomainEvents()
		return r
	}

	t.Run("approve makes review public", func(t *testing.T) {
		r := newReview()

		err := r.Approve()

		require.NoError(t, err)
		assert.Equal(t, ReviewStatusApproved, r.Status)
		assert.True(t, r.IsApproved())
		assert.NotNil(t, r.ModeratedAt)
		assert.Len(t, r.GetDomainEvents(), 1)
	})

	t.Run("cannot approve twice", func(t *testing.T) {
		r := newReview()
		_ = r.Approve()

		assert.Error(t, r.Approve())
	})

	t.Run("reject hides review", func(t *testing.T) {
		r := newReview()

		err := r.Reject()

		require.NoError(t, err)
		assert.Equal(t, ReviewStatusRejected, r.Status)
		assert.False(t, r.IsApproved())
		assert.NotNil(t, r.ModeratedAt)
	})

	t.Run("cannot reject twice", func(t *testing.T) {
		r := newReview()
		_ = r.Reject()

		assert.Error(t, r.Reject())
	})

	t.Run("moderation can flip a decision", func(t *testing.T) {
		r := newReview()
		_ = r.Approve()

		err := r.Reject()

		require.NoError(t, err)
		assert.Equal(t, ReviewStatusRejected, r.Status)

		err = r.Approve()

		require.NoError(t, err)
		assert.Equal(t, ReviewStatusApproved, r.Status)
	})
}
