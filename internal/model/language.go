package model

// Language is the short tag identifying a snippet's programming language.
//
// It's a closed set: the editor only offers these nine languages, and the server
// rejects anything else at validation time. Using a named string type (rather
// than bare string) makes function signatures self-documenting and lets us hang
// methods like Valid() and Extension() off the type.
type Language string

// The supported languages. The string values are the tags the editor sends.
const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangC          Language = "c"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
)

// DefaultLanguage is what the editor starts with when nothing is selected.
const DefaultLanguage = LangJavaScript

// languageExtensions maps each language to the file extension used when a
// snippet is downloaded. The download filename is "<title>.<ext>".
var languageExtensions = map[Language]string{
	LangJavaScript: "js",
	LangTypeScript: "ts",
	LangPython:     "py",
	LangJava:       "java",
	LangCPP:        "cpp",
	LangC:          "c",
	LangGo:         "go",
	LangRust:       "rs",
	LangPHP:        "php",
}

// defaultCode is the starter program shown when the user picks a language.
var defaultCode = map[Language]string{
	LangJavaScript: `console.log("Hi, edit me!");`,
	LangTypeScript: `console.log("Hi, edit me!" as string);`,
	LangPython:     `print("Hi, edit me!")`,
	LangJava: `public class Main {
    public static void main(String[] args) {
        System.out.println("Hi, edit me!");
    }
}`,
	LangCPP: `#include <iostream>
using namespace std;

int main() {
    cout << "Hi, edit me!" << endl;
    return 0;
}`,
	LangC: `#include <stdio.h>

int main() {
    printf("Hi, edit me!\n");
    return 0;
}`,
	LangGo: `package main
import "fmt"

func main() {
    fmt.Println("Hi, edit me!")
}`,
	LangRust: `fn main() {
    println!("Hi, edit me!");
}`,
	LangPHP: `<?php
echo "Hi, edit me!";
?>`,
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	_, ok := languageExtensions[l]
	return ok
}

// Extension returns the download file extension for the language.
// Unknown languages (legacy rows, direct DB edits) fall back to "txt" so a
// download never produces an extensionless or misleading filename.
func (l Language) Extension() string {
	if ext, ok := languageExtensions[l]; ok {
		return ext
	}
	return "txt"
}

// DefaultCode returns the starter program for the language, falling back to
// the JavaScript starter for anything unrecognised.
func (l Language) DefaultCode() string {
	if code, ok := defaultCode[l]; ok {
		return code
	}
	return defaultCode[DefaultLanguage]
}

// Languages returns all supported language tags. Handy for validation error
// messages and for the editor's language selector endpoint.
func Languages() []Language {
	return []Language{
		LangJavaScript, LangTypeScript, LangPython, LangJava,
		LangCPP, LangC, LangGo, LangRust, LangPHP,
	}
}
