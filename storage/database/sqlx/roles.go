package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/coachdesk/core/session"
)

// RoleRepository reads & grants the role labels of the user_roles table.
type RoleRepository struct {
	db *sqlx.DB
}

var _ session.RoleResolver = (*RoleRepository)(nil)

func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (repo *RoleRepository) RolesForUser(ctx context.Context, userID string) ([]string, error) {
	roles := make([]string, 0)
	err := repo.db.SelectContext(ctx, &roles, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	return roles, errors.Wrap(err, "selecting user roles")
}

// GrantRole gives the role to the user; granting it twice is a no-op.
func (repo *RoleRepository) GrantRole(ctx context.Context, userID, role string) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role,
	)
	return mapError(err)
}
