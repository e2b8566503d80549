package storage

import "github.com/gosimple/slug"

// CertificateFilename is the attachment name offered for a certificate.
func CertificateFilename(courseTitle, studentName string) string {
	name := slug.Make(courseTitle + " " + studentName)
	if name == "" {
		name = "certificate"
	}
	return name + "-certificate.pdf"
}
