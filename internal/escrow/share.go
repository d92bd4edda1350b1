package escrow

// milestoneShare returns floor(total * percent / 100) without risking
// 64-bit overflow on the intermediate product. With percent <= 100 the
// remainder product stays below 10000, so splitting total into quotient
// and remainder of 100 keeps every term in range:
//
//	total = 100q + r  =>  floor(total*p/100) = q*p + floor(r*p/100)
func milestoneShare(total, percent int64) int64 {
	q, r := total/100, total%100
	return q*percent + r*percent/100
}
