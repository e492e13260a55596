package engine

// DealOrder lists the role handed to each position of a shuffled roster of n:
// m mafia, then the doctor, then the police, then villagers. Seats that do not
// fit are dropped.
func DealOrder(n, m int) []Role {
	order := make([]Role, 0, n)
	for i := 0; i < m && len(order) < n; i++ {
		order = append(order, RoleMafia)
	}
	for _, seat := range []Role{RoleDoctor, RolePolice} {
		if len(order) < n {
			order = append(order, seat)
		}
	}
	for len(order) < n {
		order = append(order, RoleVillager)
	}
	return order
}
