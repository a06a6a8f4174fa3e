package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"centra.io/internal/auth"
	"centra.io/internal/ids"
)

// Organizations ------------------------------------------------------------

func (s *Store) CreateOrganization(ctx context.Context, org auth.Organization) (auth.Organization, error) {
	if org.ID == "" {
		org.ID = ids.New()
	}
	cfg, err := marshalConfig(org.Config)
	if err != nil {
		return auth.Organization{}, err
	}
	row := s.q.QueryRowContext(ctx, `
		insert into organizations (id, name, type_name, config)
		values ($1, $2, $3, $4)
		returning id, name, type_name, config, created_at, updated_at
	`, org.ID, org.Name, org.TypeName, cfg)
	out, err := scanOrganization(row)
	if err != nil {
		return auth.Organization{}, mapConstraintError(err)
	}
	return out, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (auth.Organization, error) {
	row := s.q.QueryRowContext(ctx, `
		select id, name, type_name, config, created_at, updated_at
		from organizations
		where id = $1
	`, id)
	org, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Organization{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Organization{}, err
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]auth.Organization, error) {
	rows, err := s.q.QueryContext(ctx, `
		select id, name, type_name, config, created_at, updated_at
		from organizations
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOrganization(ctx context.Context, id string, upd auth.OrganizationUpdate) (auth.Organization, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.TypeName != nil {
		sets = append(sets, fmt.Sprintf("type_name = $%d", idx))
		args = append(args, *upd.TypeName)
		idx++
	}
	if upd.Config != nil {
		cfg, err := marshalConfig(upd.Config)
		if err != nil {
			return auth.Organization{}, err
		}
		sets = append(sets, fmt.Sprintf("config = $%d", idx))
		args = append(args, cfg)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update organizations set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.q.ExecContext(ctx, query, args...)
		if err != nil {
			return auth.Organization{}, mapConstraintError(err)
		}
		if err := requireAffected(res); err != nil {
			return auth.Organization{}, err
		}
	}
	return s.GetOrganization(ctx, id)
}

func (s *Store) DeleteOrganization(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from organizations where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) CountOrganizations(ctx context.Context) (int, error) {
	var count int
	if err := s.q.QueryRowContext(ctx, `select count(*) from organizations`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Organization types -------------------------------------------------------

func (s *Store) CreateOrganizationType(ctx context.Context, ot auth.OrganizationType) (auth.OrganizationType, error) {
	rights, err := json.Marshal(emptyIfNil(ot.AccessRights))
	if err != nil {
		return auth.OrganizationType{}, err
	}
	cfg, err := marshalConfig(ot.Config)
	if err != nil {
		return auth.OrganizationType{}, err
	}
	row := s.q.QueryRowContext(ctx, `
		insert into organization_types (name, access_rights, config)
		values ($1, $2, $3)
		returning name, access_rights, config, created_at, updated_at
	`, ot.Name, rights, cfg)
	out, err := scanOrganizationType(row)
	if err != nil {
		return auth.OrganizationType{}, mapConstraintError(err)
	}
	return out, nil
}

func (s *Store) GetOrganizationType(ctx context.Context, name string) (auth.OrganizationType, error) {
	row := s.q.QueryRowContext(ctx, `
		select name, access_rights, config, created_at, updated_at
		from organization_types
		where name = $1
	`, name)
	ot, err := scanOrganizationType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.OrganizationType{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.OrganizationType{}, err
	}
	return ot, nil
}

func (s *Store) ListOrganizationTypes(ctx context.Context) ([]auth.OrganizationType, error) {
	rows, err := s.q.QueryContext(ctx, `
		select name, access_rights, config, created_at, updated_at
		from organization_types
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.OrganizationType
	for rows.Next() {
		ot, err := scanOrganizationType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ot)
	}
	return out, rows.Err()
}

// Centers -------------------------------------------------------------------

func (s *Store) CreateCenter(ctx context.Context, center auth.Center) (auth.Center, error) {
	if strings.TrimSpace(center.OrganizationID) == "" {
		return auth.Center{}, fmt.Errorf("%w: center requires an organization id", auth.ErrInvalidInput)
	}
	if center.ID == "" {
		center.ID = ids.New()
	}
	var out auth.Center
	row := s.q.QueryRowContext(ctx, `
		insert into centers (id, organization_id, name, address, phone)
		values ($1, $2, $3, $4, $5)
		returning id, organization_id, name, coalesce(address,''), coalesce(phone,''), created_at, updated_at
	`, center.ID, center.OrganizationID, center.Name, nullIfEmpty(center.Address), nullIfEmpty(center.Phone))
	if err := row.Scan(&out.ID, &out.OrganizationID, &out.Name, &out.Address, &out.Phone, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return auth.Center{}, mapConstraintError(err)
	}
	return out, nil
}

func (s *Store) GetCenter(ctx context.Context, id string) (auth.Center, error) {
	var out auth.Center
	err := s.q.QueryRowContext(ctx, `
		select id, organization_id, name, coalesce(address,''), coalesce(phone,''), created_at, updated_at
		from centers
		where id = $1
	`, id).Scan(&out.ID, &out.OrganizationID, &out.Name, &out.Address, &out.Phone, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Center{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Center{}, err
	}
	return out, nil
}

func (s *Store) ListCenters(ctx context.Context, organizationID string) ([]auth.Center, error) {
	rows, err := s.q.QueryContext(ctx, `
		select id, organization_id, name, coalesce(address,''), coalesce(phone,''), created_at, updated_at
		from centers
		where organization_id = $1
		order by name
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Center
	for rows.Next() {
		var c auth.Center
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Address, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCenter(ctx context.Context, id string, upd auth.CenterUpdate) (auth.Center, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", idx))
		args = append(args, *upd.Name)
		idx++
	}
	if upd.Address != nil {
		sets = append(sets, fmt.Sprintf("address = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Address))
		idx++
	}
	if upd.Phone != nil {
		sets = append(sets, fmt.Sprintf("phone = $%d", idx))
		args = append(args, nullIfEmpty(*upd.Phone))
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update centers set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.q.ExecContext(ctx, query, args...)
		if err != nil {
			return auth.Center{}, mapConstraintError(err)
		}
		if err := requireAffected(res); err != nil {
			return auth.Center{}, err
		}
	}
	return s.GetCenter(ctx, id)
}

func (s *Store) DeleteCenter(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from centers where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Users ---------------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user auth.User) (auth.User, error) {
	if user.ID == "" {
		user.ID = ids.New()
	}
	var out auth.User
	row := s.q.QueryRowContext(ctx, `
		insert into users (id, organization_id, username, email, full_name, password_hash, org_admin)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning id, organization_id, username, coalesce(email,''), coalesce(full_name,''), password_hash, org_admin, created_at, updated_at
	`, user.ID, user.OrganizationID, user.Username, nullIfEmpty(user.Email), nullIfEmpty(user.FullName), user.PasswordHash, user.OrgAdmin)
	if err := scanUser(row, &out); err != nil {
		return auth.User{}, mapConstraintError(err)
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	var out auth.User
	row := s.q.QueryRowContext(ctx, `
		select id, organization_id, username, coalesce(email,''), coalesce(full_name,''), password_hash, org_admin, created_at, updated_at
		from users
		where id = $1
	`, id)
	err := scanUser(row, &out)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return out, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (auth.User, error) {
	var out auth.User
	row := s.q.QueryRowContext(ctx, `
		select id, organization_id, username, coalesce(email,''), coalesce(full_name,''), password_hash, org_admin, created_at, updated_at
		from users
		where username = $1
	`, username)
	err := scanUser(row, &out)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context, organizationID string) ([]auth.User, error) {
	rows, err := s.q.QueryContext(ctx, `
		select id, organization_id, username, coalesce(email,''), coalesce(full_name,''), password_hash, org_admin, created_at, updated_at
		from users
		where organization_id = $1
		order by username
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.User
	for rows.Next() {
		var u auth.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	res, err := s.q.ExecContext(ctx, `
		update users set password_hash = $1, updated_at = now() where id = $2
	`, passwordHash, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Roles ---------------------------------------------------------------------

func (s *Store) CreateRole(ctx context.Context, role auth.Role) (auth.Role, error) {
	var out auth.Role
	row := s.q.QueryRowContext(ctx, `
		insert into roles (organization_id, name)
		values ($1, $2)
		returning organization_id, name, created_at, updated_at
	`, role.OrganizationID, role.Name)
	if err := row.Scan(&out.OrganizationID, &out.Name, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return auth.Role{}, mapConstraintError(err)
	}
	if len(role.AccessRights) > 0 {
		if err := s.SetRoleAccessRights(ctx, out.Key(), role.AccessRights); err != nil {
			return auth.Role{}, err
		}
	}
	out.AccessRights = emptyIfNil(role.AccessRights)
	return out, nil
}

func (s *Store) GetRole(ctx context.Context, key auth.RoleKey) (auth.Role, error) {
	var out auth.Role
	err := s.q.QueryRowContext(ctx, `
		select organization_id, name, created_at, updated_at
		from roles
		where organization_id = $1 and name = $2
	`, key.OrganizationID, key.Name).Scan(&out.OrganizationID, &out.Name, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	rights, err := s.roleAccessRights(ctx, key)
	if err != nil {
		return auth.Role{}, err
	}
	out.AccessRights = rights
	return out, nil
}

func (s *Store) ListRoles(ctx context.Context, organizationID string) ([]auth.Role, error) {
	rows, err := s.q.QueryContext(ctx, `
		select organization_id, name, created_at, updated_at
		from roles
		where organization_id = $1
		order by name
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Role
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.OrganizationID, &r.Name, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		rights, err := s.roleAccessRights(ctx, out[i].Key())
		if err != nil {
			return nil, err
		}
		out[i].AccessRights = rights
	}
	return out, nil
}

func (s *Store) SetRoleAccessRights(ctx context.Context, key auth.RoleKey, rights []string) error {
	var exists int
	if err := s.q.QueryRowContext(ctx, `
		select 1 from roles where organization_id = $1 and name = $2
	`, key.OrganizationID, key.Name).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}
	if _, err := s.q.ExecContext(ctx, `
		delete from role_access_rights where organization_id = $1 and role_name = $2
	`, key.OrganizationID, key.Name); err != nil {
		return err
	}
	for _, right := range rights {
		if _, err := s.q.ExecContext(ctx, `
			insert into role_access_rights (organization_id, role_name, right_name)
			values ($1, $2, $3)
		`, key.OrganizationID, key.Name, right); err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
				return fmt.Errorf("%w: access right %s not found", auth.ErrNotFound, right)
			}
			return err
		}
	}
	return nil
}

func (s *Store) DeleteRole(ctx context.Context, key auth.RoleKey) error {
	res, err := s.q.ExecContext(ctx, `
		delete from roles where organization_id = $1 and name = $2
	`, key.OrganizationID, key.Name)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) roleAccessRights(ctx context.Context, key auth.RoleKey) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		select right_name
		from role_access_rights
		where organization_id = $1 and role_name = $2
		order by right_name
	`, key.OrganizationID, key.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rights := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		rights = append(rights, name)
	}
	return rights, rows.Err()
}

// Access rights -------------------------------------------------------------

func (s *Store) CreateAccessRight(ctx context.Context, name string) error {
	if _, err := s.q.ExecContext(ctx, `
		insert into access_rights (name) values ($1)
	`, name); err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (s *Store) ListAccessRights(ctx context.Context) ([]auth.AccessRight, error) {
	rows, err := s.q.QueryContext(ctx, `
		select name, created_at from access_rights order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.AccessRight
	for rows.Next() {
		var right auth.AccessRight
		if err := rows.Scan(&right.Name, &right.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, right)
	}
	return out, rows.Err()
}

// Role assignments ----------------------------------------------------------

func (s *Store) CreateRoleAssignment(ctx context.Context, a auth.RoleAssignment) (auth.RoleAssignment, error) {
	var userOrg string
	if err := s.q.QueryRowContext(ctx, `select organization_id from users where id = $1`, a.UserID).Scan(&userOrg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.RoleAssignment{}, auth.ErrNotFound
		}
		return auth.RoleAssignment{}, err
	}
	var roleOrg string
	if err := s.q.QueryRowContext(ctx, `select organization_id from roles where organization_id = $1 and name = $2`, a.OrganizationID, a.RoleName).Scan(&roleOrg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.RoleAssignment{}, auth.ErrNotFound
		}
		return auth.RoleAssignment{}, err
	}
	if userOrg != a.OrganizationID {
		return auth.RoleAssignment{}, fmt.Errorf("%w: user and role belong to different organizations", auth.ErrInvalidInput)
	}

	var out auth.RoleAssignment
	err := s.q.QueryRowContext(ctx, `
		insert into role_assignments (user_id, organization_id, center_id, role_name)
		values ($1, $2, $3, $4)
		returning user_id, organization_id, center_id, role_name, created_at
	`, a.UserID, a.OrganizationID, a.CenterID, a.RoleName).Scan(&out.UserID, &out.OrganizationID, &out.CenterID, &out.RoleName, &out.CreatedAt)
	if err != nil {
		return auth.RoleAssignment{}, mapConstraintError(err)
	}
	return out, nil
}

func (s *Store) RemoveRoleAssignment(ctx context.Context, a auth.RoleAssignment) error {
	res, err := s.q.ExecContext(ctx, `
		delete from role_assignments
		where user_id = $1 and organization_id = $2 and center_id = $3 and role_name = $4
	`, a.UserID, a.OrganizationID, a.CenterID, a.RoleName)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) AssignmentsForUser(ctx context.Context, userID string) ([]auth.RoleAssignment, error) {
	rows, err := s.q.QueryContext(ctx, `
		select user_id, organization_id, center_id, role_name, created_at
		from role_assignments
		where user_id = $1
		order by center_id, role_name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.RoleAssignment
	for rows.Next() {
		var a auth.RoleAssignment
		if err := rows.Scan(&a.UserID, &a.OrganizationID, &a.CenterID, &a.RoleName, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) AccessRightsForUserCenter(ctx context.Context, userID, centerID string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		select distinct rar.right_name
		from role_assignments ra
		join role_access_rights rar
		  on rar.organization_id = ra.organization_id and rar.role_name = ra.role_name
		where ra.user_id = $1 and ra.center_id = $2
		order by rar.right_name
	`, userID, centerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rights []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		rights = append(rights, name)
	}
	return rights, rows.Err()
}

// helpers -------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (auth.Organization, error) {
	var (
		org auth.Organization
		cfg []byte
	)
	if err := row.Scan(&org.ID, &org.Name, &org.TypeName, &cfg, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return auth.Organization{}, err
	}
	org.Config = map[string]any{}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &org.Config); err != nil {
			return auth.Organization{}, fmt.Errorf("decode config: %w", err)
		}
	}
	return org, nil
}

func scanOrganizationType(row rowScanner) (auth.OrganizationType, error) {
	var (
		ot     auth.OrganizationType
		rights []byte
		cfg    []byte
	)
	if err := row.Scan(&ot.Name, &rights, &cfg, &ot.CreatedAt, &ot.UpdatedAt); err != nil {
		return auth.OrganizationType{}, err
	}
	ot.AccessRights = []string{}
	if len(rights) > 0 {
		if err := json.Unmarshal(rights, &ot.AccessRights); err != nil {
			return auth.OrganizationType{}, fmt.Errorf("decode access rights: %w", err)
		}
	}
	ot.Config = map[string]any{}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &ot.Config); err != nil {
			return auth.OrganizationType{}, fmt.Errorf("decode config: %w", err)
		}
	}
	return ot, nil
}

func scanUser(row rowScanner, u *auth.User) error {
	return row.Scan(&u.ID, &u.OrganizationID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.OrgAdmin, &u.CreatedAt, &u.UpdatedAt)
}

func marshalConfig(cfg map[string]any) ([]byte, error) {
	if len(cfg) == 0 {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func requireAffected(res sql.Result) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
