// Package action sends user answers to a running monitor.
//
// The command posts to the monitor's status API and keeps retrying transient
// failures until the action is accepted or the context is canceled.
package action
