package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTranslate(t *testing.T) {
	assert.Equal(t, "The email or password is incorrect.", Translate("Invalid credentials"))
	assert.Equal(t, "Your session has expired. Please sign in again.", Translate(" Token no válido "))
	assert.Equal(t, "Something odd", Translate("Something odd"))
}

func TestFeedTracksBlockingProgress(t *testing.T) {
	feed := NewFeed(10)

	done := feed.Progress("Saving product")
	assert.True(t, feed.Blocking())

	done()
	done()
	assert.False(t, feed.Blocking())

	feed.Success("Saved", "Milk")
	recent := feed.Recent()
	assert.Len(t, recent, 2)
	assert.Equal(t, KindProgress, recent[0].Kind)
	assert.Equal(t, KindSuccess, recent[1].Kind)
}

func TestFeedKeepsLimit(t *testing.T) {
	feed := NewFeed(3)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		feed.Error(title, "")
	}

	recent := feed.Recent()
	assert.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Title)
	assert.Equal(t, "e", recent[2].Title)
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewFeed(5), NewFeed(5)
	n := Multi(a, b, NewLogNotifier(zap.NewNop()))

	done := n.Progress("Deleting")
	assert.True(t, a.Blocking())
	assert.True(t, b.Blocking())
	done()
	assert.False(t, a.Blocking())
	assert.False(t, b.Blocking())

	n.Error("Failed", "boom")
	assert.Len(t, a.Recent(), 2)
	assert.Len(t, b.Recent(), 2)
}
