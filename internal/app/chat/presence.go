package chat

import (
	"encoding/json"
	"sort"

	"github.com/rs/zerolog"

	"dmchat/internal/app/user"
	"dmchat/internal/pkg/logx"
)

// Presence computes and broadcasts the set of online identities.
type Presence struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewPresence returns a Presence reading from registry.
func NewPresence(registry *Registry) *Presence {
	return &Presence{
		registry: registry,
		logger:   logx.Component("Presence"),
	}
}

// Snapshot returns the identities with at least one registered connection,
// one entry per user, ordered by username then user id.
func (p *Presence) Snapshot() []user.Identity {
	seen := make(map[string]struct{})
	online := make([]user.Identity, 0)

	for _, conn := range p.registry.All() {
		identity, ok := conn.Identity()
		if !ok {
			continue
		}
		if _, dup := seen[identity.ID]; dup {
			continue
		}
		seen[identity.ID] = struct{}{}
		online = append(online, identity)
	}

	sort.Slice(online, func(i, j int) bool {
		if online[i].Username == online[j].Username {
			return online[i].ID < online[j].ID
		}
		return online[i].Username < online[j].Username
	})

	return online
}

// Announce broadcasts a fresh snapshot to every registered connection and
// returns how many connections accepted it.
func (p *Presence) Announce() int {
	online := p.Snapshot()

	payload, err := json.Marshal(PresenceFrame{Online: online})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to marshal presence frame")
		return 0
	}

	sent := p.registry.Broadcast(payload)

	p.logger.Debug().Int("online", len(online)).Int("recipients", sent).Msg("Presence announced")
	return sent
}
