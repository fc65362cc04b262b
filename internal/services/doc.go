// Package services defines the error taxonomy shared by provider clients and
// stage handlers, plus helpers to classify failures into stage statuses.
package services
