package columns

import "pricelist/internal"

// aliases holds the known header spellings per canonical field. Case never
// matters; a header that only equals an entry after util.NormalizeLabel
// scores below an exact match.
var aliases = map[internal.Field][]string{
	internal.FieldSupplierSKU: {
		"sku", "supplier sku", "supplier code", "supplier item code", "supplier part number",
		"item code", "item no", "item #", "item number", "item id", "product code",
		"product #", "stock #", "sku #", "code #",
		"product id", "product no", "product number", "prod code", "stock code",
		"stock no", "stock number", "part no", "part number", "part #", "part code",
		"article", "article no", "article number", "art no", "catalog number",
		"catalogue number", "cat no", "model", "model no", "model number", "code",
		"ref", "reference", "ref no", "mfr part", "mpn", "manufacturer part number",
		"vendor code", "vendor sku", "our code", "material", "material number",
		"artikelnummer", "artikel nr", "référence", "code article", "código",
		"codigo", "código producto", "referencia", "codice", "codice articolo",
		"kode", "produkkode", "artikel kode", "артикул", "код", "код товара",
	},
	internal.FieldName: {
		"name", "product name", "item name", "description", "item description",
		"item desc", "product description", "product desc", "desc", "short description",
		"long description", "product", "item", "title", "product title",
		"goods", "goods description", "article description", "details", "product details",
		"stock description", "part description", "model description", "designation",
		"bezeichnung", "beschreibung", "produktname", "artikelbezeichnung",
		"désignation", "libellé", "description produit", "nom du produit",
		"descripción", "descripcion", "nombre", "nombre del producto", "producto",
		"descrição", "descricao", "nome do produto", "descrizione", "nome prodotto",
		"beskrywing", "produknaam", "наименование", "товар", "номенклатура",
		"описание", "позиция",
	},
	internal.FieldBrand: {
		"brand", "brand name", "make", "manufacturer", "mfr", "mfg", "vendor",
		"label", "marque", "marke", "hersteller", "fabricant", "marca", "fabricante",
		"produttore", "handelsmerk", "merk", "vervaardiger", "бренд", "марка",
		"производитель",
	},
	internal.FieldPrice: {
		"price", "unit price", "cost", "unit cost", "cost price", "selling price",
		"sell price", "sale price", "list price", "net price", "nett price", "dealer price",
		"dealer", "trade price", "wholesale price", "wholesale", "retail price", "retail",
		"rrp", "srp", "msrp", "recommended retail price", "price excl vat",
		"price excl", "price ex vat", "excl vat", "price incl vat", "price incl",
		"incl vat", "amount", "rate", "price zar", "price usd", "price eur",
		"zar", "usd", "eur", "gbp", "price each", "each", "dealer cost", "nett", "nett cost",
		"net", "net cost", "cost excl vat", "preis", "einzelpreis",
		"listenpreis", "prix", "prix unitaire", "prix ht", "precio", "precio unitario",
		"preço", "preco", "prezzo", "prezzo unitario", "prys", "eenheidsprys",
		"kosprys", "цена", "стоимость", "цена за единицу",
	},
	internal.FieldUOM: {
		"uom", "u/m", "u/o/m", "um", "unit of measure", "unit of measurement", "unit", "units", "measure",
		"measurement", "sales unit", "selling unit", "order unit", "base unit",
		"unit type", "pack unit", "per", "sold per", "sold as", "einheit",
		"mengeneinheit", "unité", "unite", "unidad", "unidade", "unità", "unita",
		"eenheid", "maat", "ед изм", "единица", "единица измерения",
	},
	internal.FieldPackSize: {
		"pack size", "pack", "package size", "packaging", "pack qty", "pack quantity",
		"case size", "case qty", "case pack", "carton qty", "carton quantity",
		"inner qty", "outer qty", "moq", "min order qty", "minimum order quantity",
		"qty per pack", "quantity per pack", "units per case", "units per pack",
		"size", "volume", "content", "contents", "packungsgröße", "verpackungseinheit",
		"conditionnement", "colisage", "embalaje", "tamaño del paquete", "embalagem",
		"confezione", "pakgrootte", "verpakking", "упаковка", "фасовка",
	},
	internal.FieldBarcode: {
		"barcode", "bar code", "ean", "ean13", "ean 13", "ean8", "ean code",
		"upc", "upc code", "gtin", "gtin13", "gtin14", "isbn", "jan", "jan code",
		"strichcode", "code barre", "code barres", "código de barras",
		"codigo de barras", "código de barra", "codice a barre", "strepieskode",
		"штрихкод", "штрих код",
	},
	internal.FieldCategoryRaw: {
		"category", "categories", "product category", "item category", "category name",
		"group", "product group", "item group", "family", "product family",
		"class", "classification", "department", "dept", "section", "type",
		"product type", "range", "product range", "sub category", "subcategory",
		"kategorie", "warengruppe", "catégorie", "famille", "categoría", "categoria",
		"familia", "grupo", "categoria prodotto", "kategorie naam", "groep", "категория", "группа",
	},
	internal.FieldVATCode: {
		"vat", "vat code", "vat rate", "vat %", "vat percent", "vat class",
		"tax", "tax code", "tax rate", "tax class", "tax category", "gst",
		"gst code", "gst rate", "sales tax", "mwst", "ust", "steuersatz", "tva",
		"taux tva", "iva", "tipo iva", "btw", "btw code", "bbt", "ндс", "ставка ндс",
	},
}
