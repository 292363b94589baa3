// Package core contains the community domain contracts, configuration and
// the instrumented Service that fronts a CommunityStore. Adapters depend on
// this package; core never imports transport or storage adapters.
package core
