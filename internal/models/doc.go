// Package models defines the core domain models for Relofund.
//
// # Models
//
//   - Fund: escrow state for one relocation funding campaign, including
//     its milestones and donor history
//   - Contribution: a contributor's refundable balance in one campaign
//   - RefundClaim: a recorded refund awaiting (or past) payout
//   - Account: a registered actor (contributor, campaign owner, or admin)
//
// # Design Principles
//
// 1. **Integer money**: all amounts are int64 minor units; no floats
// 2. **Owned sub-records**: milestones and donor entries belong to exactly
// one Fund and are never shared between records
// 3. **Avoid circular references**: relationships use ID fields, not pointers
package models
