//go:build !race

package jobs

func passwordHashCost() int {
	return 14
}
