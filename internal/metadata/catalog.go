package metadata

import "strconv"

// Kind names of the catalog.
const (
	KindAttributeName     = "AttributeName"
	KindAttributeValue    = "AttributeValue"
	KindAttribute         = "Attribute"
	KindImage             = "Image"
	KindProduct           = "Product"
	KindProductAttributes = "ProductAttributes"
	KindProductImage      = "ProductImage"
	KindCatalog           = "Catalog"
)

// Currencies a product can be priced in.
const (
	CurrencyCZK = "CZK"
	CurrencyEUR = "EUR"
)

// CatalogKinds returns fresh definitions of the catalog kinds, referenced
// kinds first.
func CatalogKinds() []*Kind {
	return []*Kind{
		{
			Name:  KindAttributeName,
			Table: "attribute_names",
			Fields: []Field{
				{Name: "nazev", Type: TypeString, Nullable: true},
				{Name: "kod", Type: TypeString, Nullable: true},
				{Name: "zobrazit", Type: TypeBoolean, Default: false},
			},
			Slug:  &SlugConfig{Field: "kod", Source: "nazev"},
			Rules: []*Rule{maxLength("nazev", 200), maxLength("kod", 200)},
		},
		{
			Name:   KindAttributeValue,
			Table:  "attribute_values",
			Fields: []Field{{Name: "hodnota", Type: TypeString, Nullable: true}},
			Rules:  []*Rule{maxLength("hodnota", 200)},
		},
		{
			Name:  KindAttribute,
			Table: "attributes",
			Fields: []Field{
				{Name: "nazev_atributu_id", Type: TypeRef, Target: KindAttributeName, Nullable: true},
				{Name: "hodnota_atributu_id", Type: TypeRef, Target: KindAttributeValue, Nullable: true},
			},
		},
		{
			Name:   KindImage,
			Table:  "images",
			Fields: []Field{{Name: "obrazek", Type: TypeString, Nullable: true}},
			Rules:  []*Rule{maxLength("obrazek", 400)},
		},
		{
			Name:  KindProduct,
			Table: "products",
			Fields: []Field{
				{Name: "nazev", Type: TypeString, Nullable: true},
				{Name: "description", Type: TypeText, Nullable: true},
				{Name: "cena", Type: TypeDecimal, Nullable: true},
				{Name: "mena", Type: TypeString, Nullable: true},
				{Name: "published_on", Type: TypeString, Nullable: true},
				{Name: "is_published", Type: TypeBoolean, Default: false},
			},
			Rules: []*Rule{
				maxLength("nazev", 200),
				maxLength("description", 999),
				maxLength("published_on", 200),
				{
					Type: "expression",
					Definition: RuleDefinition{
						Field:      "mena",
						Expression: `record.mena != nil && record.mena != "" && !(record.mena in ["CZK", "EUR"])`,
						Message:    "Value is not a valid choice. Allowed: CZK, EUR.",
					},
				},
			},
		},
		{
			Name:  KindProductAttributes,
			Table: "product_attributes",
			Fields: []Field{
				{Name: "attribute", Type: TypeRef, Target: KindAttribute, Nullable: true},
				{Name: "product", Type: TypeRef, Target: KindProduct, Nullable: true},
			},
		},
		{
			Name:  KindProductImage,
			Table: "product_images",
			Fields: []Field{
				{Name: "nazev", Type: TypeString, Nullable: true},
				{Name: "product", Type: TypeRef, Target: KindProduct, Nullable: true},
				{Name: "obrazek_id", Type: TypeRef, Target: KindImage, Nullable: true},
			},
			Rules: []*Rule{maxLength("nazev", 200)},
		},
		{
			Name:  KindCatalog,
			Table: "catalogs",
			Fields: []Field{
				{Name: "nazev", Type: TypeString, Nullable: true},
				{Name: "obrazek_id", Type: TypeRef, Target: KindImage, Nullable: true},
				{
					Name: "products_ids", Type: TypeRefs, Target: KindProduct,
					JoinTable: "catalog_products", JoinSource: "catalog_id", JoinTarget: "product_id",
				},
				{
					Name: "attributes_ids", Type: TypeRefs, Target: KindAttribute,
					JoinTable: "catalog_attributes", JoinSource: "catalog_id", JoinTarget: "attribute_id",
				},
			},
			Rules: []*Rule{maxLength("nazev", 200)},
		},
	}
}

// NewCatalogRegistry builds the registry of all catalog kinds.
func NewCatalogRegistry() (*Registry, error) {
	return NewRegistry(CatalogKinds()...)
}

func maxLength(field string, n int) *Rule {
	return &Rule{
		Type: "field",
		Definition: RuleDefinition{
			Field:    field,
			Operator: "max_length",
			Value:    float64(n),
			Message:  "Ensure this field has no more than " + strconv.Itoa(n) + " characters.",
		},
	}
}
