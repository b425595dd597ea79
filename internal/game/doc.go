// Package game manages the game catalogue and the many-to-many ownership
// relation between users and games.
//
// A game may have any number of owners, including none; it is never removed
// when its last owner leaves. Membership is a set keyed by (game, user) and
// is flipped with Registry.ToggleOwnership, which runs its test-and-set in a
// single SQLite transaction.
package game
