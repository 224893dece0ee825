package user

import "sort"

// Collection is the name of the users table and realtime collection.
const Collection = "utilisateurs"

// Permission is an action on a collection, eg. "factures:write".
type Permission string

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

func ReadPermission(collection string) Permission  { return Permission(collection + ":" + ActionRead) }
func WritePermission(collection string) Permission { return Permission(collection + ":" + ActionWrite) }

// PermReports grants access to the reports endpoints.
const PermReports Permission = "rapports:read"

// PermApproveHours grants the validation of time entries.
const PermApproveHours Permission = "saisies_heures:approve"

func readWrite(collections ...string) []Permission {
	perms := make([]Permission, 0, 2*len(collections))
	for _, c := range collections {
		perms = append(perms, ReadPermission(c), WritePermission(c))
	}
	return perms
}

func readOnly(collections ...string) []Permission {
	perms := make([]Permission, 0, len(collections))
	for _, c := range collections {
		perms = append(perms, ReadPermission(c))
	}
	return perms
}

func permSet(groups ...[]Permission) map[Permission]bool {
	set := make(map[Permission]bool)
	for _, g := range groups {
		for _, p := range g {
			set[p] = true
		}
	}
	return set
}

// rolePermissions maps each role to its permission set. Admins hold every permission.
var rolePermissions = map[string]map[Permission]bool{
	RoleManager: permSet(
		readWrite("chantiers", "ouvriers", "materiel", "maintenances", "clients", "factures", "saisies_heures"),
		readOnly(Collection),
		[]Permission{PermReports, PermApproveHours},
	),
	RoleChefChantier: permSet(
		readWrite("chantiers", "materiel", "maintenances", "saisies_heures"),
		readOnly("ouvriers", "clients"),
		[]Permission{PermReports, PermApproveHours},
	),
	RoleComptable: permSet(
		readWrite("clients", "factures"),
		readOnly("chantiers", "ouvriers", "saisies_heures"),
		[]Permission{PermReports},
	),
	RoleOuvrier: permSet(
		readWrite("saisies_heures"),
		readOnly("chantiers"),
	),
}

// HasPermission reports whether `role` grants `perm`.
func HasPermission(role string, perm Permission) bool {
	if role == RoleAdmin {
		return true
	}
	return rolePermissions[role][perm]
}

// Permissions returns the sorted permissions of a non-admin role.
func Permissions(role string) []Permission {
	set := rolePermissions[role]
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
