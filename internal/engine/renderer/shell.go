package renderer

import (
	"fmt"
	"strings"

	"payhook/internal/platform/models"
)

const shellHead = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <meta http-equiv="X-UA-Compatible" content="IE=edge">
  <title>Email</title>
  <!--[if mso]>
  <noscript>
    <xml>
      <o:OfficeDocumentSettings>
        <o:AllowPNG/>
        <o:PixelsPerInch>96</o:PixelsPerInch>
      </o:OfficeDocumentSettings>
    </xml>
  </noscript>
  <![endif]-->
  <style type="text/css">
    body { margin: 0 !important; padding: 0 !important; -webkit-text-size-adjust: 100% !important; -ms-text-size-adjust: 100% !important; -webkit-font-smoothing: antialiased !important; }
    table { border-collapse: collapse; mso-table-lspace: 0px; mso-table-rspace: 0px; }
    img { border: 0; line-height: 100%; outline: none; text-decoration: none; -ms-interpolation-mode: bicubic; }
    p { margin: 0; }
  </style>
</head>
`

const shellBody = `<body style="margin: 0; padding: 0; background-color: %[1]s; font-family: %[2]s;">
  <table border="0" cellpadding="0" cellspacing="0" width="100%%" style="background-color: %[1]s;">
    <tr>
      <td align="center" style="padding: %[3]s;">
        <table border="0" cellpadding="0" cellspacing="0" width="%[4]d" style="max-width: %[4]dpx;">`

const shellEnd = `
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

func writeShellStart(b *strings.Builder, s models.Settings) {
	b.WriteString(shellHead)
	fmt.Fprintf(b, shellBody, s.BackgroundColor, s.FontFamily, boxStyle(&s.Padding), s.ContainerWidth)
}
