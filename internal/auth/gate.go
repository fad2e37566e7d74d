package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

// Gate is the external authorization collaborator: a single boolean
// capability query against the platform's course/schedule/subscription
// data. This service never mutates that source of truth.
type Gate interface {
	CanJoin(ctx context.Context, user *domain.User, room domain.RoomID) (bool, error)
}

// AllowAll admits everyone. Used in dev mode and tests, where the
// platform API is not around.
type AllowAll struct{}

func (AllowAll) CanJoin(context.Context, *domain.User, domain.RoomID) (bool, error) {
	return true, nil
}

// HTTPGate asks the platform API whether a user may join a room. The
// platform evaluates the role rules: teachers own their scheduled rooms,
// students need a completed subscription, admins are always allowed.
type HTTPGate struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGate(baseURL string) *HTTPGate {
	return &HTTPGate{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type accessReply struct {
	Allowed bool `json:"allowed"`
}

func (g *HTTPGate) CanJoin(ctx context.Context, user *domain.User, room domain.RoomID) (bool, error) {
	var reply accessReply
	err := requests.URL(g.baseURL).
		Path("/api/classes/access/").
		Param("user", string(user.ID)).
		Param("room", string(room)).
		Client(g.client).
		ToJSON(&reply).
		Fetch(ctx)
	if err != nil {
		return false, fmt.Errorf("authorization query: %w", err)
	}
	log.Debug().Str("module", "auth.gate").Str("user", string(user.ID)).Str("room", string(room)).Bool("allowed", reply.Allowed).Msg("access check")
	return reply.Allowed, nil
}
