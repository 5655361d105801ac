// Package tpg implements the evolutionary core of a Tangled Program Graph:
// a population of teams whose learners pair register-machine programs with
// actions, where an action either emits an atomic code or delegates to
// another team. Inference selects the highest-bidding learner and descends
// the graph with a visited list as the cycle guard; evolution selects,
// clones and mutates teams between episodes.
//
// The engine is single-threaded. No method on a Brain or Trainer may be
// invoked concurrently.
package tpg
