package models

import "time"

// Group member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Group is a named collection of users joined by invite code. The group
// leaderboard ranks only its members.
type Group struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"size:64;not null" json:"name"`
	InviteCode string    `gorm:"size:8;uniqueIndex;not null" json:"invite_code"`
	OwnerID    uint      `gorm:"index;not null" json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupMember joins users to groups with a role.
type GroupMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   string    `gorm:"size:36;index:idx_group_member,unique;not null" json:"group_id"`
	UserID    uint      `gorm:"index:idx_group_member,unique;not null" json:"user_id"`
	Role      string    `gorm:"size:16;not null;default:member" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
