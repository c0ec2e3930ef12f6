package auth

// Permissions checked by the stock opname API.
const (
	// PermOpnameReview allows approving, rejecting and listing across branches.
	PermOpnameReview = "stock_opname:review"
)

// Roles issued by the identity service.
const (
	RoleBranchStaff = "branch_staff"
	RoleReviewer    = "inventory_reviewer"
)
