// Package ops implements the operator-facing device operations: register
// and remove devices, check license state, install or replace licenses,
// generate dossiers, and export the fleet.
//
// Every operation follows the same discipline: validate input before any
// state is touched, resolve credentials fresh for this one operation, run
// the device call, persist the result through a merge patch, and drop the
// credential bundle on return. Mutating operations finish with the
// verification poller, so the store reflects what the device actually
// reports after its management plane comes back.
package ops
