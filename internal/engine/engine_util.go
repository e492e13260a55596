package engine

// CountRoles tallies a role mapping.
func CountRoles(roles map[string]Role) map[Role]int {
	counts := map[Role]int{RoleMafia: 0, RoleDoctor: 0, RolePolice: 0, RoleVillager: 0}
	for _, r := range roles {
		counts[r]++
	}
	return counts
}
