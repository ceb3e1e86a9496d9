package entity

// OrganizationCounter es la fila única por organización que acuña los
// consecutivos de documentos. Solo se toca con un upsert-incremento atómico,
// nunca con read-then-write.
type OrganizationCounter struct {
	OrganizationID   string
	SalesOrderNumber int64
	PosSaleNumber    int64
	PosReturnNumber  int64
}
