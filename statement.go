package banklink

import (
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

type statement struct {
	BankID      string
	Account     Account
	GeneratedAt time.Time
}

// renderStatement writes a single page PDF summary of one account.
func renderStatement(w io.Writer, st statement) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(st.BankID+" account summary", true)
	pdf.SetCreationDate(st.GeneratedAt)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, st.BankID)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(50, 8, "Client ID", "1", 0, "L", false, 0, "")
	pdf.CellFormat(80, 8, strconv.FormatInt(st.Account.ID, 10), "1", 1, "R", false, 0, "")
	pdf.CellFormat(50, 8, "Balance", "1", 0, "L", false, 0, "")
	pdf.CellFormat(80, 8, st.Account.Balance.StringFixed(2), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+st.GeneratedAt.UTC().Format(time.RFC3339))

	return pdf.Output(w)
}
