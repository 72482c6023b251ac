// Package record holds the types passed between the travel history stages:
// positioned text fragments, travel events and paired trips.
package record
