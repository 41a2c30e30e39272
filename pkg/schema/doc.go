// Package schema builds validation schemas from files and OpenAPI documents.
//
// Schema files are YAML or JSON. Each file holds one or more schemas whose
// fields keep their declaration order:
//
//	schemas:
//	  - name: tryout
//	    fields:
//	      - name: email
//	        rule: email
//	        required: true
//	        sanitize: true
//	      - name: jerseyNumber
//	        rules:
//	          - rule: numeric
//	            required: true
//	          - rule: custom
//	            custom: jerseyNumber
//	    crossField:
//	      - kind: match
//	        fields: [password, confirmPassword]
//
// OpenAPI request bodies map property formats onto rules; the x-formguard
// extension overrides the derived rule per property.
package schema
