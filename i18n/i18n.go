// Package i18n holds the UI and flash message translations.
package i18n

import "strings"

// Default is used when no supported language is requested.
const Default = "en"

var messages = map[string]map[string]string{
	"en": {
		"app_title":      "Sales invoices",
		"invoices":       "Invoices",
		"invoice":        "Invoice",
		"code":           "Code",
		"store":          "Store",
		"store_code":     "Store code",
		"enterprise":     "Enterprise",
		"address":        "Address",
		"customer":       "Customer",
		"customer_code":  "Customer code",
		"customer_group": "Customer group",
		"year":           "Year",
		"month":          "Month",
		"period":         "Period",
		"total":          "Total",
		"product":        "Product",
		"unit":           "Unit",
		"unit_price":     "Unit price",
		"quantity":       "Quantity",
		"subtotal":       "Subtotal",
		"actions":        "Actions",
		"save":           "Save",
		"update":         "Update",
		"delete":         "Delete",
		"upload":         "Import",
		"upload_hint":    "CSV or XLSX file, header row first",
		"previous":       "Previous",
		"next":           "Next",
		"page":           "Page",
		"of":             "of",
		"no_invoices":    "No invoices yet.",
		"no_details":     "This invoice has no line items.",
		"back_to_list":   "Back to invoices",
		"create_invoice": "Create invoice",
		"add_line":       "Add line",
		"select":         "Select...",
		"language":       "Language",

		"required":                 "Required",
		"not_found":                "Not found",
		"out_of_range":             "Out of range",
		"invalid_number":           "Not a number",
		"must_be_positive_integer": "Must be a positive whole number",

		"flash_import_succeeded": "Import invoice succeeded",
		"flash_import_failed":    "Import invoice failed, data does not match the expected structure",
		"flash_file_required":    "Please choose a file to import",
		"flash_invoice_updated":  "Invoice updated successfully.",
		"flash_invoice_removed":  "Invoice and product removed successfully.",
		"flash_product_removed":  "Product removed from invoice successfully.",
		"flash_quantity_updated": "Quantity updated successfully!",
		"flash_invalid_quantity": "Invalid quantity. Please enter a positive number.",
		"flash_invoice_created":  "Invoice created successfully!",
	},
	"vi": {
		"app_title":      "Hóa đơn bán hàng",
		"invoices":       "Hóa đơn",
		"invoice":        "Hóa đơn",
		"code":           "Mã",
		"store":          "Cửa hàng",
		"store_code":     "Mã cửa hàng",
		"enterprise":     "Doanh nghiệp",
		"address":        "Địa chỉ",
		"customer":       "Khách hàng",
		"customer_code":  "Mã khách hàng",
		"customer_group": "Nhóm khách hàng",
		"year":           "Năm",
		"month":          "Tháng",
		"period":         "Kỳ",
		"total":          "Tổng giá",
		"product":        "Mặt hàng",
		"unit":           "Đơn vị tính",
		"unit_price":     "Đơn giá",
		"quantity":       "Số lượng",
		"subtotal":       "Tạm tính",
		"actions":        "Thao tác",
		"save":           "Lưu",
		"update":         "Cập nhật",
		"delete":         "Xóa",
		"upload":         "Nhập",
		"upload_hint":    "Tệp CSV hoặc XLSX, dòng đầu là tiêu đề",
		"previous":       "Trước",
		"next":           "Sau",
		"page":           "Trang",
		"of":             "/",
		"no_invoices":    "Chưa có hóa đơn.",
		"no_details":     "Hóa đơn này chưa có mặt hàng.",
		"back_to_list":   "Quay lại danh sách",
		"create_invoice": "Tạo hóa đơn",
		"add_line":       "Thêm dòng",
		"select":         "Chọn...",
		"language":       "Ngôn ngữ",

		"required":                 "Bắt buộc",
		"not_found":                "Không tồn tại",
		"out_of_range":             "Ngoài phạm vi",
		"invalid_number":           "Không phải số",
		"must_be_positive_integer": "Phải là số nguyên dương",

		"flash_import_succeeded": "Nhập hóa đơn thành công",
		"flash_import_failed":    "Nhập hóa đơn thất bại, dữ liệu không đúng cấu trúc",
		"flash_file_required":    "Vui lòng chọn tệp để nhập",
		"flash_invoice_updated":  "Cập nhật hóa đơn thành công.",
		"flash_invoice_removed":  "Đã xóa hóa đơn và mặt hàng.",
		"flash_product_removed":  "Đã xóa mặt hàng khỏi hóa đơn.",
		"flash_quantity_updated": "Cập nhật số lượng thành công!",
		"flash_invalid_quantity": "Số lượng không hợp lệ. Vui lòng nhập số dương.",
		"flash_invoice_created":  "Tạo hóa đơn thành công!",
	},
}

// Supported reports whether lang has a translation table.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// T translates code into lang. Unknown languages fall back to Default and
// unknown codes are returned unchanged.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[Default][code]; ok {
		return s
	}
	return code
}

// DetectLanguage picks the first supported primary tag of an Accept-Language
// header, ignoring quality values.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if Supported(primary) {
			return primary
		}
	}
	return Default
}
