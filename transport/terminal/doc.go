// Package terminal renders a park session in a terminal with tcell and
// maps key presses onto park service calls.
package terminal
