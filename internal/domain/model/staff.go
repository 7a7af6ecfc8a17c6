package model

type StaffRole string

const (
	// STAFFはExistingQuantityを下回る変更ができない
	StaffRoleStaff   StaffRole = "STAFF"
	StaffRoleManager StaffRole = "MANAGER"
)
