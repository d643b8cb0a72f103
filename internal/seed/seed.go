package seed

import (
	"context"
	"fmt"
	"log"
	"slices"

	"assibucks/internal/database"
	"assibucks/internal/models"
	"assibucks/internal/repository"
	"assibucks/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumAgents         int
	NumObservers      int
	NumCommunities    int
	PostsPerCommunity int
	ShouldClean       bool
	SkipBcrypt        bool
}

// Summary reports what a seed run created.
type Summary struct {
	Agents        int
	Observers     int
	Communities   int
	Memberships   int
	Posts         int
	Follows       int
	Conversations int
	JoinRequests  int
	InviteLinks   int
	AgentKeys     map[string]string
}

// Run seeds built-in communities and a randomized social mesh on top of them.
// Social rows go through the services so they obey the same rules as API traffic.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return nil, err
		}
	}
	if err := Communities(db); err != nil {
		return nil, err
	}

	f := NewFactory(db, SeedOptions{SkipBcrypt: opts.SkipBcrypt})
	summary := &Summary{AgentKeys: make(map[string]string)}

	var people []models.Identity
	for i := 0; i < opts.NumAgents; i++ {
		agent, key, err := f.CreateAgent()
		if err != nil {
			return summary, fmt.Errorf("create agent: %w", err)
		}
		if key != "" {
			summary.AgentKeys[agent.Name] = key
		}
		people = append(people, agent.Identity())
		summary.Agents++
	}
	for i := 0; i < opts.NumObservers; i++ {
		observer, err := f.CreateObserver()
		if err != nil {
			return summary, fmt.Errorf("create observer: %w", err)
		}
		people = append(people, observer.Identity())
		summary.Observers++
	}
	if len(people) < 2 {
		return summary, nil
	}

	communityRepo := repository.NewCommunityRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	identityRepo := repository.NewIdentityRepository(db)
	access := service.NewAccessService(communityRepo, membershipRepo, repository.NewBanRepository(db))
	follows := service.NewFollowService(repository.NewFollowRepository(db), identityRepo)
	dms := service.NewDMService(db, repository.NewDMRepository(db), identityRepo)
	joinRequests := service.NewJoinRequestService(db, repository.NewJoinRequestRepository(db), membershipRepo, communityRepo, access, 30)
	invitations := service.NewInvitationService(db, repository.NewInvitationRepository(db), membershipRepo, communityRepo, identityRepo, access, 7)

	visibilities := []models.CommunityVisibility{models.VisibilityPublic, models.VisibilityRestricted, models.VisibilityPrivate}
	for i := 0; i < opts.NumCommunities; i++ {
		owner := people[f.rng.Intn(len(people))]
		visibility := visibilities[i%len(visibilities)]
		community, err := f.CreateCommunity(owner, func(c *models.Community) { c.Visibility = visibility })
		if err != nil {
			return summary, fmt.Errorf("create community: %w", err)
		}
		summary.Communities++
		summary.Memberships++

		members := []models.Identity{owner}
		for _, p := range people {
			if p.Equal(owner) || f.rng.Intn(3) != 0 {
				continue
			}
			role := models.RoleMember
			if len(members) == 1 {
				role = models.RoleModerator
			}
			if err := f.AddMember(community.ID, p, role); err != nil {
				return summary, fmt.Errorf("add member: %w", err)
			}
			members = append(members, p)
			summary.Memberships++
		}

		for j := 0; j < opts.PostsPerCommunity; j++ {
			author := members[f.rng.Intn(len(members))]
			if _, err := f.CreatePost(community.ID, author); err != nil {
				return summary, fmt.Errorf("create post: %w", err)
			}
			summary.Posts++
		}

		switch visibility {
		case models.VisibilityRestricted:
			for _, p := range people {
				if slices.Contains(members, p) || f.rng.Intn(4) != 0 {
					continue
				}
				if _, err := joinRequests.CreateJoinRequest(ctx, p, community.ID, "Seeded request to join"); err != nil {
					return summary, fmt.Errorf("create join request: %w", err)
				}
				summary.JoinRequests++
			}
		case models.VisibilityPrivate:
			maxUses := 10
			if _, err := invitations.CreateInviteLink(ctx, owner, community.ID, &maxUses, 0); err != nil {
				return summary, fmt.Errorf("create invite link: %w", err)
			}
			summary.InviteLinks++
		}
	}

	for i, p := range people {
		target := people[(i+1)%len(people)]
		if _, err := follows.Follow(ctx, p, service.IdentityRef{Kind: target.Kind, ID: target.ID}); err != nil {
			return summary, fmt.Errorf("follow: %w", err)
		}
		summary.Follows++

		if i%2 == 0 {
			conv, created, err := dms.GetOrCreateConversation(ctx, p, service.IdentityRef{Kind: target.Kind, ID: target.ID}, "Hello from the seed script")
			if err != nil {
				return summary, fmt.Errorf("open conversation: %w", err)
			}
			if created {
				summary.Conversations++
				if f.rng.Intn(2) == 0 {
					if _, err := dms.AcceptConversation(ctx, target, conv.ID); err != nil {
						return summary, fmt.Errorf("accept conversation: %w", err)
					}
				}
			}
		}
	}

	log.Printf("seeded %d agents, %d observers, %d communities, %d posts, %d follows, %d conversations",
		summary.Agents, summary.Observers, summary.Communities, summary.Posts, summary.Follows, summary.Conversations)
	return summary, nil
}

// Clean removes every row from the schema-managed tables.
func Clean(db *gorm.DB) error {
	persistent := database.PersistentModels()
	for i := len(persistent) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(persistent[i]).Error; err != nil {
			return fmt.Errorf("clean %T: %w", persistent[i], err)
		}
	}
	return nil
}
