package core

import "strings"

// TemplateFileName is the suggested name for the downloadable template.
const TemplateFileName = "bulk-upload-template.csv"

// templateHeader lists every recognised column in template order.
var templateHeader = []string{
	"name", "description", "price", "mrp", "purchasePrice", "stock", "category",
	"brand", "color", "size", "imageUrl", "imageUrl1", "imageUrl2", "imageUrl3",
	"sku", "hsn", "weight", "length", "width", "height",
	"warranty", "returnPolicy", "tax",
}

// templateRows are two sample products: one with only the required columns
// filled and one using every column.
var templateRows = [][]string{
	{
		"Stoneware Coffee Mug", "Hand glazed 350ml mug, dishwasher safe", "349", "", "", "25", "Kitchen",
		"", "", "", "https://res.cloudinary.com/demo/image/upload/mug.jpg", "", "", "",
		"", "", "", "", "", "",
		"", "", "",
	},
	{
		"Cotton Crew T-Shirt", "Soft 180 GSM cotton tee, regular fit", "599", "899", "320", "120", "Apparel",
		"Northloom", "Black, White, Navy", "S, M, L, XL", "https://res.cloudinary.com/demo/image/upload/tee-front.jpg",
		"https://res.cloudinary.com/demo/image/upload/tee-back.jpg", "https://res.cloudinary.com/demo/image/upload/tee-side.jpg", "",
		"TEE-CREW-001", "6109", "0.2", "30", "25", "2",
		"6", "7", "5",
	},
}

// SampleTemplate returns a CSV template with the full header and two
// sample rows that pass validation.
func SampleTemplate() []byte {
	var b strings.Builder
	b.WriteString(JoinCSVLine(templateHeader))
	b.WriteString("\n")
	for _, row := range templateRows {
		b.WriteString(JoinCSVLine(row))
		b.WriteString("\n")
	}
	return []byte(b.String())
}
