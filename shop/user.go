package shop

import (
	"context"
	"strings"

	orm "github.com/medatechnology/orderstore"
)

// RoleRepository stores roles, keyed by name.
type RoleRepository struct {
	*orm.Store[string, Role, RolePatch]
}

func NewRoleRepository(db orm.Database, logger orm.Logger) *RoleRepository {
	return &RoleRepository{orm.NewStore[string, Role, RolePatch](db, TableRole, RoleName, roleCodec{}, logger)}
}

// FindByName returns the role, or nil.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*Role, error) {
	return r.FindOneBy(ctx, orm.Where(RoleName, name))
}

// EnsureRoles creates the roles that don't exist yet and leaves the rest.
func (r *RoleRepository) EnsureRoles(ctx context.Context, names ...string) error {
	for _, name := range names {
		res := r.Executor().ExecOneSQLParameterized(ctx, orm.ParameterizedSQL{
			Query:  `INSERT INTO "role" (name) VALUES (?) ON CONFLICT (name) DO NOTHING`,
			Values: []interface{}{name},
		})
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// UserRepository stores users. Create fails with orm.ErrConflict when the
// email is taken, in any letter case.
type UserRepository struct {
	*orm.Store[int64, User, UserPatch]
}

func NewUserRepository(db orm.Database, logger orm.Logger) *UserRepository {
	return &UserRepository{orm.NewStore[int64, User, UserPatch](db, TableUser, UserID, userCodec{}, logger)}
}

// FindByEmail looks the user up ignoring letter case. Emails are written
// lower-cased, so folding the argument is enough for non-ASCII letters too.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.QueryOne(ctx, r.Executor(), orm.ParameterizedSQL{
		Query:  `SELECT * FROM "user" WHERE LOWER(email) = ?`,
		Values: []interface{}{strings.ToLower(email)},
	})
}

const userWithRoleQuery = `SELECT u.*, r.name AS role_name FROM "user" u JOIN "role" r ON u.role = r.name`

func decodeUserWithRole(rec orm.DBRecord) (UserWithRole, error) {
	user, err := userCodec{}.Decode(rec)
	if err != nil {
		return UserWithRole{}, err
	}
	roleName, err := rec.String("role_name")
	if err != nil {
		return UserWithRole{}, err
	}
	return UserWithRole{User: user, RoleDetails: Role{Name: roleName}}, nil
}

// FindByIDWithRole returns the user with its role, or nil.
func (r *UserRepository) FindByIDWithRole(ctx context.Context, id int64) (*UserWithRole, error) {
	records, err := r.Executor().SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query:  userWithRoleQuery + " WHERE u.id = ?",
		Values: []interface{}{id},
	})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	u, err := decodeUserWithRole(records[0])
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindAllWithRoles lists every user with its role, by id.
func (r *UserRepository) FindAllWithRoles(ctx context.Context) ([]UserWithRole, error) {
	records, err := r.Executor().SelectSQLParameterized(ctx, orm.ParameterizedSQL{
		Query: userWithRoleQuery + " ORDER BY u.id",
	})
	if err != nil {
		return nil, err
	}
	users := make([]UserWithRole, 0, len(records))
	for _, rec := range records {
		u, err := decodeUserWithRole(rec)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// UpdatePassword replaces the password hash and reports whether the user
// exists.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) (bool, error) {
	u, err := r.Update(ctx, id, UserPatch{PasswordHash: &passwordHash})
	return u != nil, err
}
