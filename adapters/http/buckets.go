package authhttp

// Bucket names used by authcore endpoints.
const (
	RLOTPIssue       = "auth_otp_issue"
	RLOTPVerify      = "auth_otp_verify"
	RLSignupComplete = "auth_signup_complete"
	RLAuthToken      = "auth_token"
	RLAuthLogout     = "auth_logout"
	RLUserMe         = "auth_user_me"
	RLAdminRole      = "auth_admin_role"

	RLServicesList    = "mkt_services_list"
	RLBookingCreate   = "mkt_booking_create"
	RLBookingList     = "mkt_booking_list"
	RLBookingAssign   = "mkt_booking_assign"
	RLBookingStatus   = "mkt_booking_status"
	RLWorkerLocation  = "mkt_worker_location"
	RLWorkerLocStream = "mkt_worker_loc_stream"
)
