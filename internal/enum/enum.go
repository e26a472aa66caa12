package enum

// --- Order statuses ---

const (
	OrderStatusPending  = "PENDING"
	OrderStatusApproved = "APPROVED"
	OrderStatusRejected = "REJECTED"
	OrderStatusFinished = "FINISHED"
)

// --- User roles ---

const (
	UserRoleManager = "MANAGER"
	UserRoleStaff   = "STAFF"
)

// --- Menu categories ---

const (
	MenuCategoryFood  = "FOOD"
	MenuCategoryDrink = "DRINK"
)
