package database

import (
	"sort"

	"github.com/scottsaenz/child-allowance-tracker/pkg/models"
)

// Every backend returns lists in the same order so callers can rely on it
// regardless of the store behind the interface.

func sortUsers(users []*models.User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
}

func sortChildren(children []*models.Child) {
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].CreatedAt.Equal(children[j].CreatedAt) {
			return children[i].ID < children[j].ID
		}
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
}

func sortChores(chores []*models.Chore) {
	sort.SliceStable(chores, func(i, j int) bool {
		if chores[i].CreatedAt.Equal(chores[j].CreatedAt) {
			return chores[i].ID < chores[j].ID
		}
		return chores[i].CreatedAt.Before(chores[j].CreatedAt)
	})
}

// newest first
func sortTransactions(txns []*models.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		if txns[i].Date.Equal(txns[j].Date) {
			return txns[i].ID > txns[j].ID
		}
		return txns[i].Date.After(txns[j].Date)
	})
}

// newest first
func sortExpenditures(exps []*models.Expenditure) {
	sort.SliceStable(exps, func(i, j int) bool {
		if exps[i].CreatedAt.Equal(exps[j].CreatedAt) {
			return exps[i].ID > exps[j].ID
		}
		return exps[i].CreatedAt.After(exps[j].CreatedAt)
	})
}
