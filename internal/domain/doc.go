// Package domain contains the core entities of the provisioning service:
// users, the per-user credit ledger, purchasable credit plans, PIX payment
// transactions, and the task/task-log pair that tracks batched account
// provisioning. Entities validate themselves; persistence lives in the
// store interfaces and their postgres implementations.
package domain
