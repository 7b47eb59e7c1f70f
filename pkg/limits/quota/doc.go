// Package quota implements the per-user token ledger.
//
// Each account has a subscription tier with a monthly token allowance
// (free 50, pro 500, premium unlimited) and a running balance. Metered
// actions have fixed costs: analysis 10, storybook 15, coloring 8 and
// chatbot 2. A reservation charges the cost only if the new balance stays
// within the allowance.
//
// Reservations are atomic in the AccountStore. When the stored period has
// ended, the same atomic step resets the balance, advances the period by
// whole UTC months and then evaluates the cost, reporting WasReset on the
// one reservation that performed the rollover.
//
// Two stores are provided: MemoryAccountStore for tests and single-process
// use, and SQLiteAccountStore, which also keeps a reservation history that
// Scheduler prunes on a cron schedule.
package quota
