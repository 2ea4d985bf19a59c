package domain

// SchemaVersion identifies the activity type enumeration accepted at ingestion.
// Adding or removing a member bumps it.
const SchemaVersion = 1

// ActivityType is the closed set of trackable event kinds.
type ActivityType string

// ActivityGroup is the functional domain an ActivityType belongs to.
type ActivityGroup string

const (
	GroupAuth       ActivityGroup = "auth"
	GroupProduct    ActivityGroup = "product"
	GroupCart       ActivityGroup = "cart"
	GroupOrder      ActivityGroup = "order"
	GroupPayment    ActivityGroup = "payment"
	GroupNavigation ActivityGroup = "navigation"
	GroupContact    ActivityGroup = "contact"
	GroupError      ActivityGroup = "error"
	GroupSystem     ActivityGroup = "system"
)

const (
	UserRegister          ActivityType = "user_register"
	UserLogin             ActivityType = "user_login"
	UserLogout            ActivityType = "user_logout"
	UserProfileView       ActivityType = "user_profile_view"
	UserProfileUpdate     ActivityType = "user_profile_update"
	PasswordResetRequest  ActivityType = "password_reset_request"
	PasswordResetComplete ActivityType = "password_reset_complete"
	EmailVerification     ActivityType = "email_verification"

	ProductView               ActivityType = "product_view"
	ProductSearch             ActivityType = "product_search"
	ProductFilter             ActivityType = "product_filter"
	ProductAddToCart          ActivityType = "product_add_to_cart"
	ProductRemoveFromCart     ActivityType = "product_remove_from_cart"
	ProductAddToWishlist      ActivityType = "product_add_to_wishlist"
	ProductRemoveFromWishlist ActivityType = "product_remove_from_wishlist"

	CartView              ActivityType = "cart_view"
	CartUpdateQuantity    ActivityType = "cart_update_quantity"
	CartClear             ActivityType = "cart_clear"
	CartCheckoutStart     ActivityType = "cart_checkout_start"
	CartCheckoutComplete  ActivityType = "cart_checkout_complete"
	CartCheckoutAbandoned ActivityType = "cart_checkout_abandoned"

	OrderCreate   ActivityType = "order_create"
	OrderUpdate   ActivityType = "order_update"
	OrderCancel   ActivityType = "order_cancel"
	OrderComplete ActivityType = "order_complete"
	OrderRefund   ActivityType = "order_refund"

	PaymentInitiated ActivityType = "payment_initiated"
	PaymentSuccess   ActivityType = "payment_success"
	PaymentFailed    ActivityType = "payment_failed"
	PaymentRefund    ActivityType = "payment_refund"

	PageView        ActivityType = "page_view"
	PageLeave       ActivityType = "page_leave"
	NavigationClick ActivityType = "navigation_click"
	MenuClick       ActivityType = "menu_click"
	FooterClick     ActivityType = "footer_click"

	ContactFormSubmit ActivityType = "contact_form_submit"
	NewsletterSignup  ActivityType = "newsletter_signup"
	SupportRequest    ActivityType = "support_request"

	ErrorOccurred   ActivityType = "error_occurred"
	APIError        ActivityType = "api_error"
	ValidationError ActivityType = "validation_error"

	SystemStartup  ActivityType = "system_startup"
	SystemShutdown ActivityType = "system_shutdown"
	DatabaseBackup ActivityType = "database_backup"
	CacheClear     ActivityType = "cache_clear"
)

// activityGroups is the schema: every accepted type and its group, in declaration order.
var activityGroups = []struct {
	group ActivityGroup
	types []ActivityType
}{
	{GroupAuth, []ActivityType{UserRegister, UserLogin, UserLogout, UserProfileView, UserProfileUpdate, PasswordResetRequest, PasswordResetComplete, EmailVerification}},
	{GroupProduct, []ActivityType{ProductView, ProductSearch, ProductFilter, ProductAddToCart, ProductRemoveFromCart, ProductAddToWishlist, ProductRemoveFromWishlist}},
	{GroupCart, []ActivityType{CartView, CartUpdateQuantity, CartClear, CartCheckoutStart, CartCheckoutComplete, CartCheckoutAbandoned}},
	{GroupOrder, []ActivityType{OrderCreate, OrderUpdate, OrderCancel, OrderComplete, OrderRefund}},
	{GroupPayment, []ActivityType{PaymentInitiated, PaymentSuccess, PaymentFailed, PaymentRefund}},
	{GroupNavigation, []ActivityType{PageView, PageLeave, NavigationClick, MenuClick, FooterClick}},
	{GroupContact, []ActivityType{ContactFormSubmit, NewsletterSignup, SupportRequest}},
	{GroupError, []ActivityType{ErrorOccurred, APIError, ValidationError}},
	{GroupSystem, []ActivityType{SystemStartup, SystemShutdown, DatabaseBackup, CacheClear}},
}

var (
	typeIndex = map[ActivityType]ActivityGroup{}
	allTypes  []ActivityType
)

func init() {
	for _, g := range activityGroups {
		for _, t := range g.types {
			typeIndex[t] = g.group
			allTypes = append(allTypes, t)
		}
	}
}

// ActivityTypes lists the enumeration in declaration order.
func ActivityTypes() []ActivityType {
	out := make([]ActivityType, len(allTypes))
	copy(out, allTypes)
	return out
}

// Valid reports whether t is a member of the current enumeration.
func (t ActivityType) Valid() bool {
	_, ok := typeIndex[t]
	return ok
}

// Group returns the domain of t, or "" for unknown types.
func (t ActivityType) Group() ActivityGroup {
	return typeIndex[t]
}

func (t ActivityType) String() string { return string(t) }

// ParseActivityType matches s exactly; no case folding or trimming is applied.
func ParseActivityType(s string) (ActivityType, bool) {
	t := ActivityType(s)
	return t, t.Valid()
}
