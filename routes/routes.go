package routes

// Routes package cung cấp tất cả routing functions cho Shipping Mapper Service
//
// Cấu trúc:
// - api.go: API routes (/v1/*)
// - web.go: Web routes (/, /docs)
// - routes.go: Export functions
//
// Sử dụng:
// routes.SetupAllRoutes(router, shippingController, adminController)
