package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/utils"
)

var (
	// ErrGroupNotFound marks an invite code that matches no group.
	ErrGroupNotFound = errors.New("group not found")
	// ErrCodeExhausted means invite code generation kept colliding.
	ErrCodeExhausted = errors.New("could not generate a unique invite code")
)

const inviteCodeAttempts = 5

// GroupService manages group creation and invite-code joins.
type GroupService struct {
	db *gorm.DB
}

// NewGroupService builds a GroupService.
func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// CreateGroup creates a group owned by ownerID. A generated invite code that
// collides with an existing group's code is rejected by the unique index and
// regenerated.
func (g *GroupService) CreateGroup(ctx context.Context, name string, ownerID uint) (*models.Group, error) {
	var group models.Group
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
			group = models.Group{
				ID:         uuid.NewString(),
				Name:       name,
				InviteCode: utils.GenerateInviteCode(),
				OwnerID:    ownerID,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "invite_code"}},
				DoNothing: true,
			}).Create(&group)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				return tx.Create(&models.GroupMember{
					GroupID: group.ID,
					UserID:  ownerID,
					Role:    models.RoleOwner,
				}).Error
			}
		}
		return ErrCodeExhausted
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// JoinGroup adds userID to the group matching the invite code. Joining a group
// the user is already in is a no-op success.
func (g *GroupService) JoinGroup(ctx context.Context, code string, userID uint) (*models.Group, error) {
	code = utils.NormalizeInviteCode(code)
	if code == "" {
		return nil, ErrGroupNotFound
	}

	var group models.Group
	if err := g.db.WithContext(ctx).Where("invite_code = ?", code).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.GroupMember{
			GroupID: group.ID,
			UserID:  userID,
			Role:    models.RoleMember,
		}).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Members lists a group's memberships.
func (g *GroupService) Members(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := g.db.WithContext(ctx).Where("group_id = ?", groupID).Find(&members).Error
	return members, err
}
