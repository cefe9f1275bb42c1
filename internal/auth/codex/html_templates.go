package codex

import (
	"html"
	"strings"
)

// callbackPageHtml is the page shown in the browser once the callback has been handled.
// The placeholders are replaced by DefaultCallbackHTML.
const callbackPageHtml = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{TITLE}} - Codex</title>
    <style>
        * {
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #10a37f 0%, #0b6b55 100%);
            padding: 1rem;
        }
        .container {
            text-align: center;
            background: white;
            padding: 2.5rem;
            border-radius: 12px;
            box-shadow: 0 10px 25px rgba(0,0,0,0.1);
            max-width: 480px;
            width: 100%;
        }
        .icon {
            width: 64px;
            height: 64px;
            margin: 0 auto 1.5rem;
            background: {{COLOR}};
            border-radius: 50%;
            display: flex;
            align-items: center;
            justify-content: center;
            color: white;
            font-size: 2rem;
            font-weight: bold;
        }
        h1 {
            color: #1f2937;
            margin-bottom: 1rem;
            font-size: 1.75rem;
            font-weight: 600;
        }
        .subtitle {
            color: #6b7280;
            margin-bottom: 1.5rem;
            font-size: 1rem;
            line-height: 1.5;
        }
        .button {
            padding: 0.75rem 1.5rem;
            border-radius: 8px;
            font-size: 0.875rem;
            font-weight: 500;
            cursor: pointer;
            border: none;
            background: #3b82f6;
            color: white;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">{{ICON}}</div>
        <h1>{{TITLE}}</h1>
        <p class="subtitle">{{MESSAGE}}</p>
        <button class="button" onclick="window.close()">Close Window</button>
    </div>
    <script>
        document.addEventListener('keydown', (e) => {
            if (e.key === 'Escape') {
                window.close();
            }
        });
    </script>
</body>
</html>`

// DefaultCallbackHTML renders the built-in page for a callback event.
func DefaultCallbackHTML(event CallbackEvent) string {
	title, message := "Authentication Failed", "Something went wrong. You can close this window."
	icon, color := "✕", "#ef4444"

	switch e := event.(type) {
	case CallbackSuccess:
		title = "Authentication Successful!"
		message = "You have successfully authenticated with OpenAI. You can now close this window and return to your terminal to continue."
		icon, color = "✓", "#10b981"
	case CallbackError:
		message = "The authorization server returned an error: " + html.EscapeString(e.Reason)
		if e.Description != "" {
			message += " (" + html.EscapeString(e.Description) + ")"
		}
		message += ". You can close this window."
	case CallbackStateMismatch:
		message = "Security validation failed. Please start the login again."
	case CallbackMissingCode:
		message = "No authorization code was received. Please try again."
	}

	return strings.NewReplacer(
		"{{TITLE}}", title,
		"{{MESSAGE}}", message,
		"{{ICON}}", icon,
		"{{COLOR}}", color,
	).Replace(callbackPageHtml)
}
