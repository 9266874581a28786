// Package printing generates printer command payloads and printable QR
// sheets. Payloads are opaque to the print queue; only their presence and
// delivery order are contractual.
package printing

import (
	"fmt"
	"os"
	"strings"
)

// Allocation is one school's share of a delivery batch, as printed on the
// delivery summary sticker.
type Allocation struct {
	School string
	Trays  int
}

// qrLinkForItem deep-links the ingredient code into the messaging bot.
func qrLinkForItem(itemCode string) string {
	number := os.Getenv("WHATSAPP_NUMBER")
	if number == "" {
		number = "628132258085"
	}
	return fmt.Sprintf("https://wa.me/%s?text=%s", number, itemCode)
}

// ItemLabelTSPL renders a 50x21mm ingredient label.
func ItemLabelTSPL(itemCode, name string, weightGrams int) string {
	return fmt.Sprintf(`
SIZE 50 mm, 21 mm
GAP 1 mm, 0 mm
SPEED 4
DENSITY 15
DIRECTION 1
CLS

BARCODE 50,40,"128",80,1,0,2,2,"%s"

PRINT 1,1
`, itemCode)
}

// ItemLabelZPL is the ZPL variant for Zebra-class printers.
func ItemLabelZPL(itemCode, name string, weightGrams int) string {
	return fmt.Sprintf(`
^XA
^PW400
^LL160
^FO30,30^A0N,40,40^FD%s^FS
^FO30,80^A0N,35,35^FD%d g^FS
^FO200,20^BCN,80,Y,N,N
^FD%s^FS
^XZ
`, name, weightGrams, itemCode)
}

// ItemLabel picks the printer language from lang (TSPL default).
func ItemLabel(lang, itemCode, name string, weightGrams int) string {
	if strings.EqualFold(lang, "ZPL") {
		return ItemLabelZPL(itemCode, name, weightGrams)
	}
	return ItemLabelTSPL(itemCode, name, weightGrams)
}

// DeliverySummaryTSPL renders the single 50x21mm sticker summarizing where
// one scanned batch of trays goes, with a countdown deep-link QR.
func DeliverySummaryTSPL(trayCode, countdownBaseURL string, allocations []Allocation) string {
	qrLink := fmt.Sprintf("%s/?tray_id=%s", countdownBaseURL, trayCode)

	var lines strings.Builder
	y := 20
	for _, alloc := range allocations {
		fmt.Fprintf(&lines, "TEXT 10,%d,\"0\",0,6,6,\"%s %d\"\n", y, alloc.School, alloc.Trays)
		y += 20
	}

	return fmt.Sprintf(`
SIZE 50 mm, 21 mm
GAP 1 mm, 0 mm
SPEED 4
DENSITY 15
DIRECTION 1
CLS

%s
QRCODE 300,10,L,3,A,0,"%s"

PRINT 1,1
`, lines.String(), qrLink)
}
