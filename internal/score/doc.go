// Package score rates API responses by information density and maps
// endpoint kinds onto queue tiers.
//
// The score of one response is the number of complete artist records it
// contained plus half the number of artist ids it only referenced. A Table
// assigns every endpoint kind a tier up front. A Classifier serves tier
// lookups to the workers and, when adaptive mode is enabled, moves kinds
// between tiers based on the running average score observed during a run.
package score
